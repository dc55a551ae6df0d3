package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes for the /metrics endpoint.
type Metrics struct {
	Events *prometheus.CounterVec
}

// NewMetrics creates and registers auth metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_auth_events_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.Events)
	return m
}

func (m *Metrics) record(op, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(op, outcome).Inc()
}
