// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cartobdx/cartobdx/spatial"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// ProviderNominatim names the Nominatim provider in results and metrics.
const ProviderNominatim = "nominatim"

const maxNominatimBody = 1 << 20

// NominatimGeocoder queries an OpenStreetMap Nominatim search endpoint. It
// does no caching or throttling on its own; wrap it with New.
type NominatimGeocoder struct {
	endpoint     string
	countryCodes string
	httpClient   *http.Client
}

// NewNominatimGeocoder creates a Nominatim provider. The client is expected
// to set a User-Agent as required by the Nominatim usage policy.
func NewNominatimGeocoder(endpoint string, httpClient *http.Client) *NominatimGeocoder {
	if endpoint == "" {
		endpoint = DefaultNominatimURL
	}

	if httpClient == nil {
		httpClient = httputils.NewClient(nil)
	}

	return &NominatimGeocoder{
		endpoint:     endpoint,
		countryCodes: "fr",
		httpClient:   httpClient,
	}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	AddressType string  `json:"addresstype"`
}

// Geocode implements Geocoder.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address, city, postalCode string) (*GeocodingResult, error) {
	query := SearchQuery(address, city, postalCode)

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("countrycodes", g.countryCodes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		errType := ErrorTypeNetworkError
		if httputils.IsTimeout(err) {
			errType = ErrorTypeTimeout
		}

		return nil, &GeocodingError{Type: errType, Message: "geocoding request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyHTTPError(resp.StatusCode, query)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxNominatimBody)).Decode(&places); err != nil {
		errType := ErrorTypeInvalidResponse
		if httputils.IsTimeout(err) {
			errType = ErrorTypeTimeout
		}

		return nil, &GeocodingError{Type: errType, Message: "decoding response", Err: err}
	}

	if len(places) == 0 {
		return nil, notFound(query)
	}

	place := places[0]

	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidResponse, Message: fmt.Sprintf("invalid lat %q", place.Lat), Err: err}
	}

	lng, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidResponse, Message: fmt.Sprintf("invalid lon %q", place.Lon), Err: err}
	}

	return &GeocodingResult{
		Point:       spatial.Point{Lat: lat, Lng: lng},
		Confidence:  nominatimConfidence(place.AddressType),
		Provider:    ProviderNominatim,
		DisplayName: place.DisplayName,
	}, nil
}

func nominatimConfidence(addressType string) string {
	switch addressType {
	case "house", "building", "amenity", "office":
		return "high"
	case "road", "square", "neighbourhood", "suburb", "quarter":
		return "medium"
	default:
		return "low"
	}
}
