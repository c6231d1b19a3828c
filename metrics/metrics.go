// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics registers the Prometheus collectors of the process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cartobdx"

// Geocode lookup outcomes.
const (
	GeocodeCacheHit    = "cache_hit"
	GeocodeFound       = "found"
	GeocodeNotFound    = "not_found"
	GeocodeOutOfBounds = "out_of_bounds"
	GeocodeError       = "error"
)

// Dataset fetch sources.
const (
	FetchNetwork  = "network"
	FetchCache    = "cache"
	FetchFallback = "stale_fallback"
	FetchFailed   = "failed"
)

var (
	geocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocoding lookups by outcome",
		},
		[]string{"provider", "outcome"},
	)

	geocodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_request_duration_seconds",
			Help:      "Latency of geocoding requests sent to the provider",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"provider"},
	)

	datasetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_fetches_total",
			Help:      "Open data fetches by dataset and source",
		},
		[]string{"dataset", "source"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// ObserveGeocode counts a geocoding lookup.
func ObserveGeocode(provider, outcome string) {
	geocodeLookups.WithLabelValues(provider, outcome).Inc()
}

// ObserveGeocodeLatency records the duration of a provider request.
func ObserveGeocodeLatency(provider string, d time.Duration) {
	geocodeDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveFetch counts a dataset fetch.
func ObserveFetch(dataset, source string) {
	datasetFetches.WithLabelValues(dataset, source).Inc()
}

// GinMiddleware records request counts and latencies. The metrics endpoint
// itself is not recorded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()

			return
		}

		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
