// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGeocode(t *testing.T) {
	before := testutil.ToFloat64(geocodeLookups.WithLabelValues("test", GeocodeFound))

	ObserveGeocode("test", GeocodeFound)
	ObserveGeocode("test", GeocodeFound)
	ObserveGeocodeLatency("test", 120*time.Millisecond)

	assert.InDelta(t, before+2, testutil.ToFloat64(geocodeLookups.WithLabelValues("test", GeocodeFound)), 1e-9)
}

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(datasetFetches.WithLabelValues("ds", FetchCache))

	ObserveFetch("ds", FetchCache)

	assert.InDelta(t, before+1, testutil.ToFloat64(datasetFetches.WithLabelValues("ds", FetchCache)), 1e-9)
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/ping/:id", "200"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping/42", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, before+1,
		testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/ping/:id", "200")), 1e-9)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cartobdx_http_requests_total")
}
