package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitlog_signals_rejected_total",
		Help: "Signals rejected before reaching the coordinator, by reason.",
	}, []string{"reason"})

	spoolFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitlog_spool_files_total",
		Help: "Spool files processed, by result.",
	}, []string{"result"})
)
