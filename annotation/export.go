// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package annotation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
)

// ErrNotListable is returned by Entries when the KVStore cannot enumerate
// its keys.
var ErrNotListable = errors.New("store cannot list keys")

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	Keys(prefix string) ([]string, error)
}

// Entry is the annotation of one toilet, as exported to a file.
type Entry struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Rating int     `json:"rating,omitempty"`
	Remark string  `json:"remark,omitempty"`
}

// Point returns the toilet position.
func (e Entry) Point() spatial.Point {
	return spatial.Point{Lat: e.Lat, Lng: e.Lng}
}

// pointFromKey parses the "<lat>_<lng>" suffix of a storage key.
func pointFromKey(key, prefix string) (spatial.Point, error) {
	lat, lng, ok := strings.Cut(strings.TrimPrefix(key, prefix), "_")
	if !ok {
		return spatial.Point{}, fmt.Errorf("malformed key %q", key)
	}

	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed key %q: %w", key, err)
	}

	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed key %q: %w", key, err)
	}

	return spatial.Point{Lat: la, Lng: ln}, nil
}

// Entries returns every annotation sorted by position, so exports diff
// cleanly.
func (s *Store) Entries() ([]Entry, error) {
	lister, ok := s.kv.(KeyLister)
	if !ok {
		return nil, ErrNotListable
	}

	byKey := make(map[string]spatial.Point)

	for _, prefix := range []string{ratingPrefix, remarkPrefix} {
		keys, err := lister.Keys(prefix)
		if err != nil {
			return nil, fmt.Errorf("listing %s keys: %w", prefix, err)
		}

		for _, key := range keys {
			p, err := pointFromKey(key, prefix)
			if err != nil {
				return nil, err
			}

			byKey[p.Key()] = p
		}
	}

	entries := make([]Entry, 0, len(byKey))

	for _, p := range byKey {
		a, err := s.Annotation(p)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Lat: p.Lat, Lng: p.Lng, Rating: a.Rating, Remark: a.Remark})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Lat != entries[j].Lat {
			return entries[i].Lat < entries[j].Lat
		}

		return entries[i].Lng < entries[j].Lng
	})

	return entries, nil
}

// Import saves every entry, replacing existing annotations of the same
// toilets. All entries are validated before anything is written.
func (s *Store) Import(entries []Entry) error {
	var errs []error

	for i, e := range entries {
		if e.Rating < 0 || e.Rating > MaxRating {
			errs = append(errs, fmt.Errorf("entry %d: %w: %d", i, ErrInvalidRating, e.Rating))
		}

		if n := len([]rune(strings.TrimSpace(e.Remark))); n > MaxRemarkLength {
			errs = append(errs, fmt.Errorf("entry %d: %w: %d", i, ErrRemarkTooLong, n))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, e := range entries {
		if err := s.SaveRating(e.Point(), e.Rating); err != nil {
			return err
		}

		if err := s.SaveRemark(e.Point(), e.Remark); err != nil {
			return err
		}
	}

	return nil
}
