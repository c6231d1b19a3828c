// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package loader runs the association and toilet pipelines: fetch, geocode
// the records that lack a coordinate, then merge.
package loader

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cartobdx/cartobdx/geocode"
	"github.com/cartobdx/cartobdx/opendata"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/spatial"
)

// AssociationSource fetches the association dataset.
type AssociationSource interface {
	Fetch(ctx context.Context, query string) (*opendata.RecordSet, error)
	Stats() opendata.Stats
}

// ToiletSource fetches the toilet dataset.
type ToiletSource interface {
	FetchToilets(ctx context.Context) ([]poi.Toilet, error)
}

// BatchGeocoder resolves many addresses at once.
type BatchGeocoder interface {
	GeocodeMany(ctx context.Context, addrs []geocode.Address, onProgress geocode.ProgressFunc) map[string]*spatial.Point
}

// Stats describe a LoadAssociations run.
type Stats struct {
	LoadingTime time.Duration `json:"loading_time"`
	CacheHit    bool          `json:"cache_hit"`
	Total       int           `json:"total"`
	Geocodable  int           `json:"geocodable"`
	Geocoded    int           `json:"geocoded"`
}

// Result is the outcome of LoadAssociations.
type Result struct {
	Associations []poi.Association `json:"associations"`
	Stats        Stats             `json:"stats"`
	Status       string            `json:"status"`
}

// Loader wires a source and a geocoder together.
type Loader struct {
	associations AssociationSource
	toilets      ToiletSource
	geocoder     BatchGeocoder
	now          func() time.Time
}

// New creates a Loader. toilets may be nil when only associations are
// loaded.
func New(associations AssociationSource, toilets ToiletSource, geocoder BatchGeocoder) *Loader {
	return &Loader{
		associations: associations,
		toilets:      toilets,
		geocoder:     geocoder,
		now:          time.Now,
	}
}

// StatusLine formats the completion message shown once geocoding ends.
func StatusLine(geocoded, geocodable int) string {
	return fmt.Sprintf("Terminé: %d/%d géolocalisées", geocoded, geocodable)
}

// LoadAssociations fetches every association, geocodes those with a
// complete address and no coordinate, and merges the results in input
// order. onProgress may be nil. Fetch errors are returned as is; the caller
// retries by calling again.
func (l *Loader) LoadAssociations(ctx context.Context, onProgress geocode.ProgressFunc) (*Result, error) {
	start := l.now()
	hitsBefore := l.associations.Stats().CacheHits

	set, err := l.associations.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}

	cacheHit := l.associations.Stats().CacheHits > hitsBefore

	requests := poi.GeocodableAddresses(set.Associations)
	addrs := make([]geocode.Address, len(requests))

	for i, r := range requests {
		addrs[i] = geocode.Address{
			ID:         r.ID,
			Address:    r.Address,
			City:       r.City,
			PostalCode: r.PostalCode,
		}
	}

	var coords map[string]*spatial.Point
	if len(addrs) > 0 {
		log.Printf("📦 Geocoding %d of %d associations", len(addrs), len(set.Associations))
		coords = l.geocoder.GeocodeMany(ctx, addrs, onProgress)
	}

	geocoded := 0

	for _, p := range coords {
		if p != nil {
			geocoded++
		}
	}

	merged := poi.MergeAssociations(set.Associations, coords)
	status := StatusLine(geocoded, len(addrs))

	log.Printf("✅ %s", status)

	return &Result{
		Associations: merged,
		Stats: Stats{
			LoadingTime: l.now().Sub(start),
			CacheHit:    cacheHit,
			Total:       len(merged),
			Geocodable:  len(addrs),
			Geocoded:    geocoded,
		},
		Status: status,
	}, nil
}

// LoadToilets fetches and parses the toilet export.
func (l *Loader) LoadToilets(ctx context.Context) ([]poi.Toilet, error) {
	if l.toilets == nil {
		return nil, fmt.Errorf("no toilet source configured")
	}

	return l.toilets.FetchToilets(ctx)
}

// LoadToiletsFile parses a toilet export saved on disk.
func LoadToiletsFile(path string) ([]poi.Toilet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	toilets, err := poi.ParseToiletsCSVReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return toilets, nil
}
