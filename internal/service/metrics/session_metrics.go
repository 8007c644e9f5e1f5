package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stockdash",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open dashboard sessions",
		},
	)

	SessionInputs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockdash",
			Subsystem: "session",
			Name:      "inputs_total",
			Help:      "Dashboard inputs received by input name",
		},
		[]string{"input"},
	)

	SessionSuperseded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stockdash",
			Subsystem: "session",
			Name:      "superseded_fetches_total",
			Help:      "In-flight fetches cancelled by a newer input",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(SessionsActive, SessionInputs, SessionSuperseded)
	})
}
