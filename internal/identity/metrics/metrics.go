// Package metrics exposes Prometheus counters for the identity service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the identity-domain counters. A nil *Metrics is valid and
// records nothing, so tests can skip registration entirely.
type Metrics struct {
	identitiesCreated *prometheus.CounterVec
	logins            prometheus.Counter
	seals             prometheus.Counter
}

// New creates and registers the identity metrics on the default registry.
// Call once per process.
func New() *Metrics {
	return &Metrics{
		identitiesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_identities_created_total",
			Help: "Total identities created, by kind.",
		}, []string{"kind"}),
		logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexus_logins_total",
			Help: "Total successful logins.",
		}),
		seals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nexus_seals_total",
			Help: "Total AI profiles sealed.",
		}),
	}
}

func (m *Metrics) RecordRegistration(kind string) {
	if m == nil {
		return
	}
	m.identitiesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordLogin() {
	if m == nil {
		return
	}
	m.logins.Inc()
}

func (m *Metrics) RecordSeal() {
	if m == nil {
		return
	}
	m.seals.Inc()
}
