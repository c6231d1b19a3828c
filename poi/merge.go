// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
)

// GeocodeRequest is an address to resolve, identified by the record key.
type GeocodeRequest struct {
	ID         string
	Address    string
	City       string
	PostalCode string
}

// GeocodableAddresses returns one request per record that has a complete
// postal address and no coordinate yet, in input order.
func GeocodableAddresses(records []Association) []GeocodeRequest {
	requests := make([]GeocodeRequest, 0, len(records))

	for i := range records {
		r := &records[i]
		if r.Located() || !r.HasAddress() {
			continue
		}

		requests = append(requests, GeocodeRequest{
			ID:         r.Key(),
			Address:    strings.TrimSpace(r.Address),
			City:       strings.TrimSpace(r.City),
			PostalCode: strings.TrimSpace(r.PostalCode),
		})
	}

	return requests
}

// MergeAssociations attaches resolved coordinates to the records, keeping
// the input order. Records that already carry a point are never modified,
// and nil or missing entries leave the record as it was. The input slice is
// not mutated.
func MergeAssociations(records []Association, coords map[string]*spatial.Point) []Association {
	merged := make([]Association, len(records))

	for i, r := range records {
		merged[i] = r
		if r.Point != nil {
			continue
		}

		if p := coords[r.Key()]; p != nil {
			pt := *p
			merged[i].Point = &pt
			merged[i].Provenance = ProvenanceGeocoded
		}
	}

	return merged
}

// GroupedMerge is the grouping variant of MergeAssociations: records that
// were submitted for geocoding come first, followed by the ones that could
// not be submitted. Order is preserved inside each group.
func GroupedMerge(records []Association, coords map[string]*spatial.Point) []Association {
	merged := MergeAssociations(records, coords)
	out := make([]Association, 0, len(merged))

	var rest []Association

	for i := range merged {
		if records[i].Point == nil && records[i].HasAddress() {
			out = append(out, merged[i])
		} else {
			rest = append(rest, merged[i])
		}
	}

	return append(out, rest...)
}

// CountGeocoded returns how many records got their point from geocoding.
func CountGeocoded(records []Association) int {
	n := 0

	for i := range records {
		if records[i].Provenance == ProvenanceGeocoded {
			n++
		}
	}

	return n
}
