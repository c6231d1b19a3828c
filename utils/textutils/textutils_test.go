// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerASCIIFolding(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Théâtre", "theatre"},
		{"  ÉCOLE de Musique ", "ecole de musique"},
		{"Bègles", "begles"},
		{"Cœur", "cœur"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LowerASCIIFolding(tt.input))
		})
	}
}

func TestContainsFolded(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		needle   string
		want     bool
	}{
		{name: "accent in haystack", haystack: "Club de Théâtre", needle: "theatre", want: true},
		{name: "case", haystack: "SPORT", needle: "sport", want: true},
		{name: "missing", haystack: "Musique", needle: "sport", want: false},
		{name: "empty haystack", haystack: "", needle: "x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsFolded(tt.haystack, tt.needle))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "éèà…", Truncate("éèàùç", 4))
	assert.Empty(t, Truncate("abc", 0))
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{12, "12"},
		{999, "999"},
		{1000, "1 000"},
		{1234567, "1 234 567"},
		{-1234, "-1 234"},
		{-100, "-100"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInt(tt.input))
		})
	}
}
