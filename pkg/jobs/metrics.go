package jobs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	firedTotal   *prometheus.CounterVec
	handlerError *prometheus.CounterVec
	fireDelay    *prometheus.HistogramVec
}

var getMetrics = sync.OnceValue(func() *metrics {
	return &metrics{
		firedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emetric",
			Subsystem: "transition_jobs",
			Name:      "fired_total",
			Help:      "Transition jobs fired, by entity kind and phase.",
		}, []string{"kind", "phase"}),
		handlerError: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emetric",
			Subsystem: "transition_jobs",
			Name:      "handler_errors_total",
			Help:      "Transition handlers that returned an error.",
		}, []string{"kind", "phase"}),
		fireDelay: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "emetric",
			Subsystem: "transition_jobs",
			Name:      "fire_delay_seconds",
			Help:      "Delay between a job's fire time and its execution.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		}, []string{"kind", "phase"}),
	}
})
