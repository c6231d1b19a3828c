// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartobdx/cartobdx/spatial"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "rate limit error type",
			err:  &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit reached"},
			want: true,
		},
		{name: "message contains rate limit", err: errors.New("rate limit exceeded"), want: true},
		{name: "message contains too many requests", err: errors.New("too many requests"), want: true},
		{name: "message contains 429", err: errors.New("nominatim returned status 429"), want: true},
		{
			name: "other error type",
			err:  &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"},
			want: false,
		},
		{name: "unrelated error", err: errors.New("some other error"), want: false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "quota exceeded error type",
			err:  &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded"},
			want: true,
		},
		{name: "google maps status", err: errors.New("google maps status: OVER_QUERY_LIMIT"), want: true},
		{name: "unrelated error", err: errors.New("boom"), want: false},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "timeout error type",
			err:  &GeocodingError{Type: ErrorTypeTimeout, Message: "timeout"},
			want: true,
		},
		{
			name: "wrapped deadline",
			err:  &GeocodingError{Type: ErrorTypeNetworkError, Message: "request failed", Err: context.DeadlineExceeded},
			want: true,
		},
		{name: "plain deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
	}, IsTimeoutError)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "typed", err: &GeocodingError{Type: ErrorTypeOutOfBounds}, want: ErrorTypeOutOfBounds},
		{name: "out of bounds", err: outOfBounds("1 rue X, 33000 Bordeaux, France", spatial.Point{Lat: 48.85, Lng: 2.35}), want: ErrorTypeOutOfBounds},
		{name: "wrapped typed", err: fmt.Errorf("x: %w", &GeocodingError{Type: ErrorTypeNotFound}), want: ErrorTypeNotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTimeout},
		{name: "429 text", err: errors.New("status 429"), want: ErrorTypeRateLimit},
		{name: "quota text", err: errors.New("quota exceeded"), want: ErrorTypeQuotaExceeded},
		{name: "other", err: errors.New("boom"), want: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			got := ClassifyHTTPError(tt.status, "q")
			assert.Equal(t, tt.want, got.Type)
			assert.NotEmpty(t, got.Error())
		})
	}
}

func TestGeocodingErrorWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &GeocodingError{Type: ErrorTypeNetworkError, Message: "request failed", Err: cause}

	assert.Equal(t, "request failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "network", ErrorTypeNetworkError.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}
