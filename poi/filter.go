// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"fmt"
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
	"github.com/cartobdx/cartobdx/utils/textutils"
)

// FilterAssociations returns the records whose name, activities, city,
// description or acronym contain the query, ignoring case. A blank query
// returns the input unchanged. The input is never mutated.
func FilterAssociations(records []Association, query string) []Association {
	return filterAssociations(records, strings.ToLower(strings.TrimSpace(query)), containsLower)
}

// FilterAssociationsFolded is FilterAssociations ignoring accents too, so
// "theatre" finds "Théâtre".
func FilterAssociationsFolded(records []Association, query string) []Association {
	return filterAssociations(records, textutils.LowerASCIIFolding(query), textutils.ContainsFolded)
}

func containsLower(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func filterAssociations(records []Association, needle string, contains func(string, string) bool) []Association {
	if needle == "" {
		return records
	}

	out := make([]Association, 0)

	for i := range records {
		if records[i].matches(needle, contains) {
			out = append(out, records[i])
		}
	}

	return out
}

func (a *Association) matches(needle string, contains func(string, string) bool) bool {
	if contains(a.Name, needle) ||
		contains(a.City, needle) ||
		contains(a.Description, needle) ||
		contains(a.Acronym, needle) {
		return true
	}

	for _, activity := range a.Activities {
		if contains(activity, needle) {
			return true
		}
	}

	return false
}

// ToiletFilter selects toilets in the explore view.
type ToiletFilter string

const (
	// FilterAll keeps every toilet.
	FilterAll ToiletFilter = "ALL"
	// FilterAccessible keeps wheelchair accessible toilets.
	FilterAccessible ToiletFilter = "ACCESSIBLE"
)

// ParseToiletFilter accepts ALL, ACCESSIBLE or a toilet kind, case
// insensitively. Blank means ALL.
func ParseToiletFilter(s string) (ToiletFilter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "", string(FilterAll):
		return FilterAll, nil
	case string(FilterAccessible):
		return FilterAccessible, nil
	}

	for _, k := range KnownKinds {
		if s == string(k) {
			return ToiletFilter(k), nil
		}
	}

	return "", fmt.Errorf("unknown toilet filter %q", s)
}

// FilterToilets applies f, preserving order.
func FilterToilets(toilets []Toilet, f ToiletFilter) []Toilet {
	if f == "" || f == FilterAll {
		return toilets
	}

	out := make([]Toilet, 0)

	for i := range toilets {
		t := &toilets[i]

		var keep bool
		if f == FilterAccessible {
			keep = t.Accessible()
		} else {
			keep = t.Kind == ToiletKind(f)
		}

		if keep {
			out = append(out, *t)
		}
	}

	return out
}

// ToiletSummary holds the counters shown on the explore screen.
type ToiletSummary struct {
	Total      int                `json:"total"`
	Accessible int                `json:"accessible"`
	ByKind     map[ToiletKind]int `json:"by_kind"`
}

// SummarizeToilets counts toilets in total, accessible and per kind.
func SummarizeToilets(toilets []Toilet) ToiletSummary {
	s := ToiletSummary{
		Total:  len(toilets),
		ByKind: make(map[ToiletKind]int, len(KnownKinds)),
	}

	for _, k := range KnownKinds {
		s.ByKind[k] = 0
	}

	for i := range toilets {
		if toilets[i].Accessible() {
			s.Accessible++
		}

		s.ByKind[toilets[i].Kind]++
	}

	return s
}

// NearbyToilet is a toilet with its distance in meters to a point.
type NearbyToilet = spatial.Neighbor[Toilet]

// NearestToilets returns the n toilets closest to origin, nearest first.
func NearestToilets(toilets []Toilet, origin spatial.Point, n int) ([]NearbyToilet, error) {
	idx := spatial.NewIndex[Toilet](spatial.DefaultIndexResolution)

	for i := range toilets {
		if err := idx.Insert(toilets[i].Point, toilets[i]); err != nil {
			return nil, fmt.Errorf("indexing toilet %s: %w", toilets[i].Key(), err)
		}
	}

	return idx.Nearest(origin, n)
}
