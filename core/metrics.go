package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	discarded  prometheus.Counter
	prepares   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "priam",
			Name:      "executions_total",
			Help:      "Total number of delivered statement executions by status.",
		}, []string{"status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "priam",
			Name:      "execution_duration_seconds",
			Help:      "Time from submission to callback of statement executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"status"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "priam",
			Name:      "executions_in_flight",
			Help:      "Number of statement executions whose callback was not delivered yet.",
		}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "priam",
			Name:      "late_completions_discarded_total",
			Help:      "Total number of executions that completed after their timeout fired.",
		}),
		prepares: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "priam",
			Name:      "prepares_total",
			Help:      "Total number of prepare requests by outcome.",
		}, []string{"outcome"}),
	}
}
