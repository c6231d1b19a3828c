// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartobdx/cartobdx/annotation"
	"github.com/cartobdx/cartobdx/geocode"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/spatial"
)

func TestLogWriterPrefixesTimestamp(t *testing.T) {
	var buf bytes.Buffer

	w := &logWriter{writer: &buf}
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, " hello\n"))

	_, err = time.Parse("2006-01-02 15:04:05", strings.TrimSuffix(line, " hello\n"))
	assert.NoError(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, loadEnv(filepath.Join(dir, "missing.env")), "an explicit missing file fails")

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CARTOBDX_TEST_VALUE=bordeaux\n"), 0o600))
	t.Setenv("CARTOBDX_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("CARTOBDX_TEST_VALUE"))

	require.NoError(t, loadEnv(path))
	assert.Equal(t, "bordeaux", os.Getenv("CARTOBDX_TEST_VALUE"))
}

func TestGeocoderOptions(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want geocode.Options
	}{
		{
			name: "defaults left to the geocoder",
			opts: options{CacheSize: 10},
			want: geocode.Options{CacheSize: 10},
		},
		{
			name: "slow variant",
			opts: options{Slow: true},
			want: geocode.Options{BatchSize: geocode.SlowBatchSize, BatchDelay: geocode.SlowBatchDelay},
		},
		{
			name: "explicit flags win over slow",
			opts: options{Slow: true, BatchSize: 8, BatchDelay: time.Second},
			want: geocode.Options{BatchSize: 8, BatchDelay: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *tt.opts.geocoderOptions())
		})
	}
}

func TestGeocoderUnknownProvider(t *testing.T) {
	o := &options{Provider: "bing"}

	_, err := o.geocoder(context.Background(), nil)
	assert.ErrorContains(t, err, "unknown geocoding provider")
}

func TestGeocoderGoogleWithKey(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")

	o := &options{Provider: "google"}

	g, err := o.geocoder(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestOpenAnnotations(t *testing.T) {
	o := &options{DbPath: filepath.Join(t.TempDir(), "nested", "db")}
	p := spatial.Point{Lat: 44.84, Lng: -0.57}

	db, store, err := o.openAnnotations()
	require.NoError(t, err)
	require.NoError(t, store.SaveRating(p, 4))
	require.NoError(t, db.Close())

	db, store, err = o.openAnnotations()
	require.NoError(t, err)
	defer db.Close()

	got, err := store.Annotation(p)
	require.NoError(t, err)
	assert.Equal(t, annotation.Annotation{Rating: 4}, got, "annotations persist across runs")
	assert.FileExists(t, filepath.Join(o.DbPath, dbFile))
}

func TestPrintAssociations(t *testing.T) {
	var buf bytes.Buffer

	printAssociations(&buf, []poi.Association{
		{Name: "Club de Théâtre", City: "Bordeaux", Point: &spatial.Point{Lat: 44.84, Lng: -0.57}},
		{Name: strings.Repeat("x", 60), City: "Pessac"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[3], "44.84000, -0.57000")
	assert.Contains(t, lines[4], "…")

	width := len([]rune(lines[0]))
	for _, line := range lines {
		assert.Len(t, []rune(line), width, "columns stay aligned: %q", line)
	}
}

func TestPrintToilets(t *testing.T) {
	var buf bytes.Buffer

	printToilets(&buf, []poi.Toilet{{Address: "Quai", Kind: poi.KindChalet, Handi: "OUI"}}, []float64{123.4})

	out := buf.String()
	assert.Contains(t, out, "Chalet de nécessité")
	assert.Contains(t, out, "123 m")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"associations", "list"},
		{"toilets", "list"},
		{"toilets", "stats"},
		{"toilets", "nearest"},
		{"annotate", "show"},
		{"annotate", "rating"},
		{"annotate", "remark"},
		{"annotate", "export"},
		{"annotate", "import"},
		{"serve"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
