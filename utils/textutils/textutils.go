// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds the text normalization used by search and display.
package textutils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// ContainsFolded reports whether needle, already folded with
// LowerASCIIFolding, occurs in the folded form of haystack.
func ContainsFolded(haystack, foldedNeedle string) bool {
	if haystack == "" {
		return false
	}

	return strings.Contains(LowerASCIIFolding(haystack), foldedNeedle)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

// FormatInt formats an integer with French digit grouping (narrow no-break
// spaces) for human readability.
func FormatInt(n int64) string {
	const sep = " "

	in := strconv.FormatInt(n, 10)

	sign := ""
	if n < 0 {
		sign, in = "-", in[1:]
	}

	var sb strings.Builder

	sb.WriteString(sign)

	for i, c := range in {
		if i > 0 && (len(in)-i)%3 == 0 {
			sb.WriteString(sep)
		}

		sb.WriteRune(c)
	}

	return sb.String()
}
