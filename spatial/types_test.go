// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointKey(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  string
	}{
		{
			name:  "short decimals",
			point: Point{Lat: 44.84, Lng: -0.58},
			want:  "44.84_-0.58",
		},
		{
			name:  "integral values",
			point: Point{Lat: 45, Lng: -1},
			want:  "45_-1",
		},
		{
			name:  "full precision",
			point: Point{Lat: 44.837789, Lng: -0.57918},
			want:  "44.837789_-0.57918",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.Key())
		})
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Point
		wantErr bool
	}{
		{
			name:  "compact",
			input: "44.84,-0.58",
			want:  Point{Lat: 44.84, Lng: -0.58},
		},
		{
			name:  "with spaces",
			input: " 44.84 , -0.58 ",
			want:  Point{Lat: 44.84, Lng: -0.58},
		},
		{
			name:    "missing comma",
			input:   "44.84 -0.58",
			wantErr: true,
		},
		{
			name:    "bad latitude",
			input:   "abc,-0.58",
			wantErr: true,
		},
		{
			name:    "bad longitude",
			input:   "44.84,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{name: "bordeaux center", point: BordeauxCenter, want: true},
		{name: "south-west corner", point: Point{Lat: 44.5, Lng: -1.0}, want: true},
		{name: "north-east corner", point: Point{Lat: 45.0, Lng: -0.2}, want: true},
		{name: "paris", point: Point{Lat: 48.8566, Lng: 2.3522}, want: false},
		{name: "just west", point: Point{Lat: 44.8, Lng: -1.0001}, want: false},
		{name: "just north", point: Point{Lat: 45.0001, Lng: -0.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BordeauxMetropole.Contains(tt.point))
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	a := Point{Lat: 44.8378, Lng: -0.5792}
	b := Point{Lat: 44.8412, Lng: -0.5800}

	assert.InDelta(t, 383, a.HaversineDistance(&b), 5)
	assert.InDelta(t, 0, a.HaversineDistance(&a), 1e-9)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, BordeauxCenter.Validate())
	assert.NoError(t, Point{Lat: -90, Lng: 180}.Validate())
	assert.Error(t, Point{Lat: 90.1, Lng: 0}.Validate())
	assert.Error(t, Point{Lat: 0, Lng: -180.5}.Validate())
}
