// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the geographic primitives shared by the datasets:
// points, bounding boxes and a nearest-neighbour index.
package spatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Key returns the "<lat>_<lng>" identifier of the point. Coordinates use
// the shortest decimal form that round-trips, so 44.84 stays "44.84".
func (p Point) Key() string {
	return FormatCoordinate(p.Lat) + "_" + FormatCoordinate(p.Lng)
}

// FormatCoordinate renders a coordinate in its shortest decimal form.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePoint parses a "lat,lng" pair. Whitespace around each component is
// ignored.
func ParsePoint(s string) (Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("spatial: invalid point %q: expected \"lat,lng\"", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("spatial: invalid latitude in %q: %w", s, err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("spatial: invalid longitude in %q: %w", s, err)
	}

	return Point{Lat: lat, Lng: lng}, nil
}

// Validate checks that the point is a valid WGS84 coordinate.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// BordeauxMetropole covers the Bordeaux metropolitan area with some margin.
var BordeauxMetropole = BoundingBox{
	MinLat: 44.5,
	MaxLat: 45.0,
	MinLng: -1.0,
	MaxLng: -0.2,
}

// BordeauxCenter is the default map center (Place de la Comédie).
var BordeauxCenter = Point{Lat: 44.8378, Lng: -0.5792}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// IsZero reports whether the box was left unset.
func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}
