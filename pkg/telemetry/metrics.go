package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registrations counts device registration attempts by outcome
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicetrust",
			Name:      "registrations_total",
			Help:      "Total number of device registration attempts",
		},
		[]string{"result"},
	)

	// Validations counts validation attempts by terminal decision
	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicetrust",
			Name:      "validations_total",
			Help:      "Total number of device validation attempts",
		},
		[]string{"decision"},
	)

	// Anomalies counts fingerprint submissions that carried anomalies
	Anomalies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devicetrust",
			Name:      "anomalies_total",
			Help:      "Total number of fingerprint submissions flagged with anomalies",
		},
	)

	// TrustAdjustments counts trust-score adjustments by reason
	TrustAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devicetrust",
			Name:      "trust_adjustments_total",
			Help:      "Total number of trust score adjustments",
		},
		[]string{"reason"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(Registrations)
		prometheus.DefaultRegisterer.Register(Validations)
		prometheus.DefaultRegisterer.Register(Anomalies)
		prometheus.DefaultRegisterer.Register(TrustAdjustments)
	})
}
