// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves postal addresses of the Bordeaux area to
// coordinates. Providers do the network lookup; CachedGeocoder adds the
// throttling, timeout, bounding-box check, cache and batching.
package geocode

import (
	"context"
	"fmt"

	"github.com/cartobdx/cartobdx/spatial"
)

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Point       spatial.Point
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, address, city, postalCode string) (*GeocodingResult, error)
}

// Address is a batch geocoding request. ID is echoed back as the key of the
// result map.
type Address struct {
	ID         string
	Address    string
	City       string
	PostalCode string
}

// SearchQuery builds the free-form query sent to the providers.
func SearchQuery(address, city, postalCode string) string {
	return fmt.Sprintf("%s, %s %s, France", address, postalCode, city)
}
