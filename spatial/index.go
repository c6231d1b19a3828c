// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"sort"

	"github.com/uber/h3-go/v4"
)

const (
	// DefaultIndexResolution gives hexagons of roughly 0.7 km².
	DefaultIndexResolution = 8
	// maxSearchRings bounds the ring expansion before falling back to a
	// full scan.
	maxSearchRings = 32
)

// Neighbor is an item returned by a nearest-neighbour query.
type Neighbor[T any] struct {
	Item     T       `json:"item"`
	Point    Point   `json:"point"`
	Distance float64 `json:"distance_m"`
}

type entry[T any] struct {
	point Point
	item  T
}

// Index buckets items by H3 cell so that nearest-neighbour queries only
// look at the cells around the origin. It is not safe for concurrent
// writes; build it once and query it freely.
type Index[T any] struct {
	resolution int
	// edge is a lower bound of the hexagon edge length in meters, 0 when
	// unknown.
	edge  float64
	cells map[h3.Cell][]entry[T]
	all   []entry[T]
}

// NewIndex creates an empty index at the given H3 resolution.
func NewIndex[T any](resolution int) *Index[T] {
	if resolution <= 0 {
		resolution = DefaultIndexResolution
	}

	// Edge lengths vary by less than a factor of two around the average.
	edge, err := h3.HexagonEdgeLengthAvgM(resolution)
	if err != nil {
		edge = 0
	}

	return &Index[T]{
		resolution: resolution,
		edge:       edge / 2,
		cells:      make(map[h3.Cell][]entry[T]),
	}
}

// Len returns the number of indexed items.
func (x *Index[T]) Len() int {
	return len(x.all)
}

// Insert adds an item at the given point.
func (x *Index[T]) Insert(p Point, item T) error {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), x.resolution)
	if err != nil {
		return fmt.Errorf("error converting to h3 cell at res %d: %w", x.resolution, err)
	}

	e := entry[T]{point: p, item: item}
	x.cells[cell] = append(x.cells[cell], e)
	x.all = append(x.all, e)

	return nil
}

// reach is a lower bound of the distance from a point of the origin cell
// to any point outside the k-ring disk around it.
func (x *Index[T]) reach(k int) float64 {
	if k < 1 {
		return 0
	}

	return float64(k-1) * x.edge
}

// Nearest returns up to n items ordered by increasing distance to origin.
// Rings are added around the origin cell until the n-th candidate is closer
// than anything outside the disk can be; past maxSearchRings every item is
// ranked.
func (x *Index[T]) Nearest(origin Point, n int) ([]Neighbor[T], error) {
	if n <= 0 || len(x.all) == 0 {
		return nil, nil
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(origin.Lat, origin.Lng), x.resolution)
	if err != nil {
		return nil, fmt.Errorf("error converting origin to h3 cell: %w", err)
	}

	var out []Neighbor[T]

	for k := 0; k <= maxSearchRings; k++ {
		disk, err := h3.GridDisk(cell, k)
		if err != nil {
			return nil, fmt.Errorf("error expanding h3 disk k=%d: %w", k, err)
		}

		found := x.collect(disk)
		if len(found) < n && len(found) < len(x.all) {
			continue
		}

		ranked := rank(origin, found)
		if len(found) == len(x.all) || ranked[n-1].Distance <= x.reach(k) {
			out = ranked

			break
		}
	}

	if out == nil {
		out = rank(origin, x.all)
	}

	if len(out) > n {
		out = out[:n]
	}

	return out, nil
}

func rank[T any](origin Point, entries []entry[T]) []Neighbor[T] {
	out := make([]Neighbor[T], 0, len(entries))
	for _, e := range entries {
		out = append(out, Neighbor[T]{
			Item:     e.item,
			Point:    e.point,
			Distance: origin.HaversineDistance(&e.point),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})

	return out
}

func (x *Index[T]) collect(cells []h3.Cell) []entry[T] {
	var found []entry[T]
	for _, c := range cells {
		found = append(found, x.cells[c]...)
	}

	return found
}
