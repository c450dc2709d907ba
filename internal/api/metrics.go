package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the HTTP surface.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PanicsTotal     prometheus.Counter
}

// NewMetrics registers the HTTP metrics once per process.
//
// Metrics:
//   - smartmoney_http_requests_total{route,status}
//   - smartmoney_http_request_duration_seconds{route}
//   - smartmoney_http_panics_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "smartmoney_http_requests_total",
					Help: "HTTP requests by route pattern and status code",
				},
				[]string{"route", "status"},
			),
			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "smartmoney_http_request_duration_seconds",
					Help:    "HTTP request latency by route pattern",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
			PanicsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "smartmoney_http_panics_total",
					Help: "Requests that ended in a recovered panic",
				},
			),
		}
	})
	return globalMetrics
}
