// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package poi models the points of interest of the Bordeaux metropolitan
// area (associations and public toilets) and the pure operations over them:
// merging geocoded coordinates, filtering and CSV parsing.
package poi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
)

// Provenance tells where the coordinate of a record came from.
type Provenance int

const (
	// ProvenanceNone means the record has no coordinate.
	ProvenanceNone Provenance = iota
	// ProvenanceDataset means the coordinate was part of the source dataset.
	ProvenanceDataset
	// ProvenanceGeocoded means the coordinate was resolved from the address.
	ProvenanceGeocoded
)

var provenanceNames = [...]string{"none", "dataset", "geocoded"}

func (p Provenance) String() string {
	if p < 0 || int(p) >= len(provenanceNames) {
		return fmt.Sprintf("Provenance(%d)", int(p))
	}

	return provenanceNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Provenance) UnmarshalText(text []byte) error {
	for i, name := range provenanceNames {
		if name == string(text) {
			*p = Provenance(i)

			return nil
		}
	}

	return fmt.Errorf("unknown provenance %q", text)
}

// Association is a record of the associations directory.
type Association struct {
	ID           string         `json:"id,omitempty"`
	RNA          string         `json:"rna,omitempty"`
	Name         string         `json:"name"`
	Acronym      string         `json:"acronym,omitempty"`
	Description  string         `json:"description,omitempty"`
	State        string         `json:"state,omitempty"`
	Activities   []string       `json:"activities,omitempty"`
	Address      string         `json:"address,omitempty"`
	PostalCode   string         `json:"postal_code,omitempty"`
	City         string         `json:"city,omitempty"`
	Website      string         `json:"website,omitempty"`
	CreationYear string         `json:"creation_year,omitempty"`
	Point        *spatial.Point `json:"point,omitempty"`
	Provenance   Provenance     `json:"provenance"`
}

// Key identifies the record within a load: the explicit id when present,
// otherwise the name, otherwise the postal address.
func (a *Association) Key() string {
	if a.ID != "" {
		return a.ID
	}

	if a.Name != "" {
		return a.Name
	}

	return strings.Join([]string{a.Address, a.PostalCode, a.City}, "|")
}

// HasAddress reports whether street, postal code and city are all present,
// which is what geocoding requires.
func (a *Association) HasAddress() bool {
	return strings.TrimSpace(a.Address) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.City) != ""
}

// Located reports whether the record carries a coordinate.
func (a *Association) Located() bool {
	return a.Point != nil
}

// SplitLocated partitions records into those with and without coordinates,
// preserving order in both.
func SplitLocated(records []Association) (located, notLocated []Association) {
	located = make([]Association, 0, len(records))
	notLocated = make([]Association, 0)

	for _, r := range records {
		if r.Located() {
			located = append(located, r)
		} else {
			notLocated = append(notLocated, r)
		}
	}

	return located, notLocated
}

// String implements fmt.Stringer for logs.
func (a *Association) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return a.Key()
	}

	return string(b)
}
