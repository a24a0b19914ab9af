// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the part of the collector used by services and middleware.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordRecommendation(source string, picks []string)
	RecordCatalogRequest(outcome string, duration time.Duration)
}

// Catalog request outcomes.
const (
	CatalogOK          = "ok"
	CatalogCacheHit    = "cache_hit"
	CatalogError       = "error"
	CatalogBreakerOpen = "breaker_open"
)

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	recommendations *prometheus.CounterVec
	picks           *prometheus.CounterVec
	catalogRequests *prometheus.CounterVec
	catalogLatency  prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readtrac_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readtrac_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readtrac_recommendations_total",
			Help: "Recommendation requests by candidate source.",
		}, []string{"source"}),
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readtrac_recommendation_picks_total",
			Help: "Recommended books by the ranking stage that selected them.",
		}, []string{"reason"}),
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readtrac_catalog_requests_total",
			Help: "External catalog lookups by outcome.",
		}, []string{"outcome"}),
		catalogLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "readtrac_catalog_latency_seconds",
			Help:    "Latency of external catalog requests that reached the network.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.recommendations,
		c.picks,
		c.catalogRequests,
		c.catalogLatency,
	)
	return c
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (c *Collector) RecordRecommendation(source string, picks []string) {
	c.recommendations.WithLabelValues(source).Inc()
	for _, reason := range picks {
		c.picks.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) RecordCatalogRequest(outcome string, duration time.Duration) {
	c.catalogRequests.WithLabelValues(outcome).Inc()
	if outcome == CatalogOK || outcome == CatalogError {
		c.catalogLatency.Observe(duration.Seconds())
	}
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordRecommendation(string, []string)                {}
func (Nop) RecordCatalogRequest(string, time.Duration)           {}
