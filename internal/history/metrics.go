package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	visitsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitlog_visits_recorded_total",
		Help: "Visits appended to the log",
	})

	visitsDebouncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitlog_visits_debounced_total",
		Help: "Visit attempts collapsed by the debounce window",
	})

	visitsTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitlog_visits_truncated_total",
		Help: "Visit timestamps dropped by the per-channel retention cap",
	})

	recordErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitlog_record_errors_total",
		Help: "Visit attempts lost to storage failures",
	})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visitlog_query_duration_seconds",
		Help:    "Duration of history queries",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"query_type"})
)
