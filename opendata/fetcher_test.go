// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

const recordsBody = `{
  "total_count": 2,
  "results": [
    {
      "rna": "W332000001",
      "nom": "Club de Théâtre",
      "sigle": null,
      "description": "Ateliers",
      "etat": "Active",
      "liste_activites": ["Culture", "Théâtre"],
      "contact_adresse": "1 rue X",
      "contact_cp": 33000,
      "contact_ville": "Bordeaux",
      "site_web": "https://example.org",
      "anneecreation": 1998
    },
    {
      "nom": "Foot Club",
      "liste_activites": "Sport",
      "contact_cp": "33600",
      "geo_point_2d": {"lat": 44.80, "lon": -0.63}
    }
  ]
}`

// recordsServer serves recordsBody and records the queries it receives.
type recordsServer struct {
	*httptest.Server
	requests atomic.Int32
	mu       sync.Mutex
	queries  []url.Values
	block    atomic.Bool
	status   atomic.Int32
}

func newRecordsServer(t *testing.T) *recordsServer {
	t.Helper()

	rs := &recordsServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.requests.Add(1)
		rs.mu.Lock()
		rs.queries = append(rs.queries, r.URL.Query())
		rs.mu.Unlock()

		if rs.block.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}

			return
		}

		if s := rs.status.Load(); s != 0 {
			w.WriteHeader(int(s))

			return
		}

		if !strings.HasSuffix(r.URL.Path, "/catalog/datasets/bor_associations/records") {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, recordsBody)
	}))
	t.Cleanup(rs.Close)

	return rs
}

func (rs *recordsServer) lastQuery() url.Values {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.queries[len(rs.queries)-1]
}

func newTestFetcher(rs *recordsServer, clock *fakeClock) *Fetcher {
	return NewFetcher(&Options{
		BaseURL:    rs.URL + "/",
		Timeout:    100 * time.Millisecond,
		HTTPClient: rs.Client(),
		Now:        clock.Now,
	})
}

func TestFetchDecodesRecords(t *testing.T) {
	rs := newRecordsServer(t)
	f := newTestFetcher(rs, newFakeClock())

	set, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)

	q := rs.lastQuery()
	assert.Equal(t, "100", q.Get("limit"))
	assert.Contains(t, q.Get("select"), "contact_adresse")
	assert.False(t, q.Has("where"))

	want := []poi.Association{
		{
			ID:           "W332000001",
			RNA:          "W332000001",
			Name:         "Club de Théâtre",
			Description:  "Ateliers",
			State:        "Active",
			Activities:   []string{"Culture", "Théâtre"},
			Address:      "1 rue X",
			PostalCode:   "33000",
			City:         "Bordeaux",
			Website:      "https://example.org",
			CreationYear: "1998",
		},
		{
			Name:       "Foot Club",
			Activities: []string{"Sport"},
			PostalCode: "33600",
		},
	}

	assert.Equal(t, 2, set.TotalCount)
	if diff := cmp.Diff(want, set.Associations); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectListCoversDecodedFields(t *testing.T) {
	var decoded []string

	rt := reflect.TypeOf(associationRecord{})
	for i := range rt.NumField() {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		decoded = append(decoded, name)
	}

	assert.ElementsMatch(t, associationFields, decoded, "every decoded field must be selected")
}

func TestFetchCachesUnfilteredResults(t *testing.T) {
	rs := newRecordsServer(t)
	clock := newFakeClock()
	f := newTestFetcher(rs, clock)
	ctx := context.Background()

	first, err := f.Fetch(ctx, "")
	require.NoError(t, err)

	clock.Advance(4*time.Minute + 59*time.Second)

	second, err := f.Fetch(ctx, "  ")
	require.NoError(t, err)
	assert.Same(t, first, second, "fresh cache returns the identical object")
	assert.Equal(t, int32(1), rs.requests.Load())

	clock.Advance(time.Second)

	third, err := f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.NotSame(t, first, third, "expired cache refetches")
	assert.Equal(t, int32(2), rs.requests.Load())

	stats := f.Stats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(1), stats.CacheHits)
}

func TestFetchFilteredBypassesCache(t *testing.T) {
	rs := newRecordsServer(t)
	f := newTestFetcher(rs, newFakeClock())
	ctx := context.Background()

	unfiltered, err := f.Fetch(ctx, "")
	require.NoError(t, err)

	_, err = f.Fetch(ctx, `sport "club"`)
	require.NoError(t, err)
	assert.Equal(t, int32(2), rs.requests.Load())
	assert.Equal(t,
		`nom like "%sport \"club\"%" or liste_activites like "%sport \"club\"%" or description like "%sport \"club\"%"`,
		rs.lastQuery().Get("where"))

	// The filtered result did not replace the cached one.
	again, err := f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.Same(t, unfiltered, again)
	assert.Equal(t, int32(2), rs.requests.Load())
}

func TestFetchTimeoutFallsBackToStaleCache(t *testing.T) {
	rs := newRecordsServer(t)
	clock := newFakeClock()
	f := newTestFetcher(rs, clock)
	ctx := context.Background()

	cached, err := f.Fetch(ctx, "")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	rs.block.Store(true)

	got, err := f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.Same(t, cached, got)
	assert.Equal(t, int64(1), f.Stats().Fallbacks)

	// Filtered requests never fall back.
	_, err = f.Fetch(ctx, "sport")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Timeout)
}

func TestFetchTimeoutWithoutCache(t *testing.T) {
	rs := newRecordsServer(t)
	rs.block.Store(true)
	f := newTestFetcher(rs, newFakeClock())

	start := time.Now()
	set, err := f.Fetch(context.Background(), "")
	assert.Less(t, time.Since(start), time.Second)
	assert.Nil(t, set)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Timeout)
	assert.True(t, httputils.IsTimeout(err))
	assert.Equal(t, DefaultUserMessage, UserMessage(err))
	assert.Equal(t, int64(1), f.Stats().Failures)
}

func TestFetchHTTPErrorPropagates(t *testing.T) {
	rs := newRecordsServer(t)
	clock := newFakeClock()
	f := newTestFetcher(rs, clock)
	ctx := context.Background()

	_, err := f.Fetch(ctx, "")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	rs.status.Store(http.StatusInternalServerError)

	_, err = f.Fetch(ctx, "")
	require.Error(t, err, "non-timeout errors do not fall back")

	var statusErr *httputils.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr))
	assert.Equal(t, DefaultUserMessage, UserMessage(err))
}

func TestFetchCanceledContext(t *testing.T) {
	rs := newRecordsServer(t)
	f := newTestFetcher(rs, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreloadAndClear(t *testing.T) {
	rs := newRecordsServer(t)
	f := newTestFetcher(rs, newFakeClock())
	ctx := context.Background()

	f.Preload(ctx)
	assert.Equal(t, int32(1), rs.requests.Load())

	_, err := f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), rs.requests.Load())

	f.Clear()

	_, err = f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), rs.requests.Load())
}

func TestPreloadOnlyLogsFailures(t *testing.T) {
	rs := newRecordsServer(t)
	rs.status.Store(http.StatusServiceUnavailable)
	f := newTestFetcher(rs, newFakeClock())

	assert.NotPanics(t, func() { f.Preload(context.Background()) })
	assert.Equal(t, int64(1), f.Stats().Failures)
}

func TestWhereClause(t *testing.T) {
	assert.Equal(t,
		`nom like "%a\\b%" or liste_activites like "%a\\b%" or description like "%a\\b%"`,
		WhereClause(`a\b`))
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Dataset: "ds", Message: "msg", Err: context.DeadlineExceeded}
	assert.Equal(t, "msg (ds): context deadline exceeded", err.Error())
	assert.Equal(t, "msg", (&FetchError{Message: "msg"}).Error())
	assert.Equal(t, "msg", UserMessage(fmt.Errorf("wrapped: %w", err)))
}
