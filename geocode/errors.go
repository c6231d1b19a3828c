// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

// GeocodingError represents a geocoding specific failure.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown unknown failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit rate limit reached.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exceeded or access denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the request did not complete in time.
	ErrorTypeTimeout
	// ErrorTypeNotFound the provider returned no candidate.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the provider rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport failure or unavailable service.
	ErrorTypeNetworkError
	// ErrorTypeInvalidResponse the response could not be decoded.
	ErrorTypeInvalidResponse
	// ErrorTypeOutOfBounds the candidate lies outside the service area.
	ErrorTypeOutOfBounds
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeRateLimit:       "rate_limit",
	ErrorTypeQuotaExceeded:   "quota_exceeded",
	ErrorTypeTimeout:         "timeout",
	ErrorTypeNotFound:        "not_found",
	ErrorTypeInvalidRequest:  "invalid_request",
	ErrorTypeNetworkError:    "network",
	ErrorTypeInvalidResponse: "invalid_response",
	ErrorTypeOutOfBounds:     "out_of_bounds",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether the provider throttled us.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError reports whether the provider quota is exhausted.
func IsQuotaExceededError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// Google Maps wording
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError reports whether the lookup ran out of time.
func IsTimeoutError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) && geoErr.Type == ErrorTypeTimeout {
		return true
	}

	return httputils.IsTimeout(err)
}

// Classify returns the ErrorType of err, inferring it for errors that are
// not a *GeocodingError.
func Classify(err error) ErrorType {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) && geoErr.Type != ErrorTypeUnknown {
		return geoErr.Type
	}

	switch {
	case IsTimeoutError(err):
		return ErrorTypeTimeout
	case IsRateLimitError(err):
		return ErrorTypeRateLimit
	case IsQuotaExceededError(err):
		return ErrorTypeQuotaExceeded
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyHTTPError maps a provider HTTP status to a GeocodingError.
func ClassifyHTTPError(statusCode int, _ string) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden: // 403
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest: // 400
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound: // 404
		return &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "location not found",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

func notFound(query string) *GeocodingError {
	return &GeocodingError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("no results found for %q", query),
	}
}

func outOfBounds(query string, p spatial.Point) *GeocodingError {
	return &GeocodingError{
		Type:    ErrorTypeOutOfBounds,
		Message: fmt.Sprintf("%q resolved outside the service area: %s", query, p),
	}
}
