// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package poi

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cartobdx/cartobdx/spatial"
)

const (
	toiletsSeparator  = ";"
	toiletsMinColumns = 10
)

// Column positions of the toilets export.
const (
	colGeoPoint = iota
	colGeoShape
	colGMLID
	colGID
	colGeomO
	colAddress
	colKind
	colHandi
	colCreatedAt
	colModifiedAt
)

// ParseToiletsCSV parses the semicolon separated toilets export. The first
// line is a header and is always skipped. Rows with fewer than ten columns
// or without a valid "lat,lng" first column are dropped. Quoted fields are
// not supported.
func ParseToiletsCSV(raw string) []Toilet {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) <= 1 {
		return []Toilet{}
	}

	toilets := make([]Toilet, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if t, ok := parseToiletLine(line); ok {
			toilets = append(toilets, t)
		}
	}

	return toilets
}

// ParseToiletsCSVReader is ParseToiletsCSV over a stream.
func ParseToiletsCSVReader(r io.Reader) ([]Toilet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	toilets := make([]Toilet, 0)
	header := true

	for scanner.Scan() {
		line := scanner.Text()
		if header {
			if strings.TrimSpace(line) == "" {
				continue
			}

			header = false

			continue
		}

		if t, ok := parseToiletLine(line); ok {
			toilets = append(toilets, t)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading toilets csv: %w", err)
	}

	return toilets, nil
}

func parseToiletLine(line string) (Toilet, bool) {
	cols := strings.Split(line, toiletsSeparator)
	if len(cols) < toiletsMinColumns {
		return Toilet{}, false
	}

	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	parts := strings.Split(cols[colGeoPoint], ",")
	if len(parts) != 2 {
		return Toilet{}, false
	}

	point, err := spatial.ParsePoint(cols[colGeoPoint])
	if err != nil {
		return Toilet{}, false
	}

	return Toilet{
		GeoPoint:   cols[colGeoPoint],
		GeoShape:   cols[colGeoShape],
		GMLID:      cols[colGMLID],
		GID:        atoiOrZero(cols[colGID]),
		GeomO:      atoiOrZero(cols[colGeomO]),
		Address:    cols[colAddress],
		Kind:       ToiletKind(cols[colKind]),
		Handi:      cols[colHandi],
		CreatedAt:  cols[colCreatedAt],
		ModifiedAt: cols[colModifiedAt],
		Point:      point,
		Provenance: ProvenanceDataset,
	}, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}
