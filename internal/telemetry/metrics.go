package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PositionAttempts counts positioning calls issued to clients
	PositionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imed",
			Name:      "acquisition_attempts_total",
			Help:      "Positioning attempts issued, by accuracy mode",
		},
		[]string{"accuracy"},
	)

	// AcquisitionOutcomes counts terminal acquisition results
	AcquisitionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imed",
			Name:      "acquisition_outcomes_total",
			Help:      "Terminal acquisition outcomes, by result",
		},
		[]string{"outcome"},
	)

	// StaleResults counts provider replies dropped by attempt identity
	StaleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imed",
			Name:      "acquisition_stale_results_total",
			Help:      "Late provider results discarded by attempt identity",
		},
	)

	// NoticesEmitted counts user-facing notices raised during acquisition
	NoticesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imed",
			Name:      "notices_total",
			Help:      "User-facing notices emitted, by level",
		},
		[]string{"level"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(PositionAttempts)
		prometheus.DefaultRegisterer.Register(AcquisitionOutcomes)
		prometheus.DefaultRegisterer.Register(StaleResults)
		prometheus.DefaultRegisterer.Register(NoticesEmitted)
	})
}
