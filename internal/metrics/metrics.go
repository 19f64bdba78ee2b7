// Package metrics collects Prometheus metrics for the gateway, store and resolver.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the rest of the application.
type Recorder interface {
	ObserveGateway(op string, ok bool, duration time.Duration)
	RecordStoreFailure(op string)
	RecordLocation(source string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveGateway(string, bool, time.Duration) {}
func (Nop) RecordStoreFailure(string)                  {}
func (Nop) RecordLocation(string)                      {}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	storeFailures   *prometheus.CounterVec
	locations       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurantfinder_gateway_requests_total",
			Help: "Search API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restaurantfinder_gateway_latency_seconds",
			Help:    "Search API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurantfinder_store_failures_total",
			Help: "Local store operations that returned an error.",
		}, []string{"op"}),
		locations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurantfinder_location_resolutions_total",
			Help: "Location resolutions by the strategy that produced the coordinate.",
		}, []string{"source"}),
	}

	reg.MustRegister(
		c.gatewayRequests,
		c.gatewayLatency,
		c.storeFailures,
		c.locations,
	)

	return c
}

// ObserveGateway records one API request.
func (c *Collector) ObserveGateway(op string, ok bool, duration time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.gatewayRequests.WithLabelValues(op, outcome).Inc()
	c.gatewayLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordStoreFailure records a failed store operation.
func (c *Collector) RecordStoreFailure(op string) {
	c.storeFailures.WithLabelValues(op).Inc()
}

// RecordLocation records which strategy resolved a location.
func (c *Collector) RecordLocation(source string) {
	c.locations.WithLabelValues(source).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
