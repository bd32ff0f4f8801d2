// Package metrics exposes Prometheus counters for the verification service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	issued      *prometheus.CounterVec
	validations *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_challenges_issued_total",
			Help: "Challenges issued, by kind.",
		}, []string{"kind"}),
		validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_challenge_validations_total",
			Help: "Validation attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) RecordIssued(kind string) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordValidation(kind string, valid bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if valid {
		outcome = "passed"
	}
	m.validations.WithLabelValues(kind, outcome).Inc()
}
