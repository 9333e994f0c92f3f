package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Fingerprint store and recommendation metrics.
var (
	FingerprintSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tastefeed",
			Name:      "fingerprint_search_duration_seconds",
			Help:      "Linear-scan fingerprint search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	FingerprintsScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tastefeed",
			Name:      "fingerprints_scanned_total",
			Help:      "Fingerprints scored by linear-scan searches",
		},
	)

	FingerprintsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tastefeed",
			Name:      "fingerprints_generated_total",
			Help:      "Fingerprint generation attempts by status",
		},
		[]string{"status"}, // "success" / "error"
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tastefeed",
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok" / "cold_start" / "no_centroids" / "error"
	)
)

var fpMetricsOnce sync.Once

// RegisterFingerprintMetrics registers fingerprint and recommendation metrics. Safe to call more than once.
func RegisterFingerprintMetrics() {
	fpMetricsOnce.Do(func() {
		prometheus.MustRegister(FingerprintSearchDuration)
		prometheus.MustRegister(FingerprintsScannedTotal)
		prometheus.MustRegister(FingerprintsGeneratedTotal)
		prometheus.MustRegister(RecommendationsTotal)
	})
}
