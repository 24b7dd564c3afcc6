package signals

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitlog_signals_total",
		Help: "Page signals accepted, by kind",
	}, []string{"kind"})

	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visitlog_triggers_total",
		Help: "Triggers that reached the recorder, by trigger and outcome",
	}, []string{"trigger", "outcome"})
)
