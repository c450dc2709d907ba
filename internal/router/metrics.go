package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for intent routing.
type Metrics struct {
	IntentsTotal     *prometheus.CounterVec
	FallbackDuration prometheus.Histogram
}

// NewMetrics registers the router metrics once per process.
//
// Metrics:
//   - smartmoney_router_intents_total{intent,outcome}
//   - smartmoney_router_fallback_duration_seconds
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			IntentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "smartmoney_router_intents_total",
					Help: "Questions handled, by the intent that answered them",
				},
				[]string{"intent", "outcome"},
			),
			FallbackDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "smartmoney_router_fallback_duration_seconds",
					Help:    "Time spent waiting on the retrieval and generation fallback",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) record(intent Intent, outcome string) {
	if m == nil {
		return
	}
	m.IntentsTotal.WithLabelValues(string(intent), outcome).Inc()
}
