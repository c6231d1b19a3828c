// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package opendata reads the Bordeaux Métropole open data portal: the
// associations directory through the records API and the public toilets
// through the CSV export.
package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cartobdx/cartobdx/metrics"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

// Defaults of Options.
const (
	DefaultBaseURL             = "https://datahub.bordeaux-metropole.fr/api/explore/v2.1"
	DefaultAssociationsDataset = "bor_associations"
	DefaultToiletsDataset      = "bor_sigsanitaire"
	DefaultPageSize            = 100
	DefaultTimeout             = 10 * time.Second
	DefaultCacheTTL            = 5 * time.Minute
)

// Options configures a Fetcher. Zero values take the defaults.
type Options struct {
	BaseURL             string
	AssociationsDataset string
	ToiletsDataset      string
	PageSize            int
	Timeout             time.Duration
	CacheTTL            time.Duration
	HTTPClient          *http.Client

	// Now is the clock of the dataset caches.
	Now func() time.Time
}

// Stats are counters of a Fetcher.
type Stats struct {
	Requests  int64 `json:"requests"`
	CacheHits int64 `json:"cache_hits"`
	Fallbacks int64 `json:"fallbacks"`
	Failures  int64 `json:"failures"`
}

// Fetcher downloads datasets and keeps the last unfiltered result of each
// one for Options.CacheTTL.
type Fetcher struct {
	opts         Options
	client       *http.Client
	associations *DatasetCache[*RecordSet]
	toilets      *DatasetCache[[]poi.Toilet]

	requests, cacheHits, fallbacks, failures atomic.Int64
}

// NewFetcher creates a Fetcher.
func NewFetcher(options *Options) *Fetcher {
	opts := Options{}
	if options != nil {
		opts = *options
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	if opts.AssociationsDataset == "" {
		opts.AssociationsDataset = DefaultAssociationsDataset
	}

	if opts.ToiletsDataset == "" {
		opts.ToiletsDataset = DefaultToiletsDataset
	}

	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	client := opts.HTTPClient
	if client == nil {
		client = httputils.NewClient(nil)
	}

	return &Fetcher{
		opts:         opts,
		client:       client,
		associations: NewDatasetCache[*RecordSet](opts.CacheTTL, opts.Now),
		toilets:      NewDatasetCache[[]poi.Toilet](opts.CacheTTL, opts.Now),
	}
}

// WhereClause builds the records API predicate matching query in the name,
// the activities or the description.
func WhereClause(query string) string {
	q := strings.ReplaceAll(query, `\`, `\\`)
	q = strings.ReplaceAll(q, `"`, `\"`)

	return fmt.Sprintf(`nom like "%%%s%%" or liste_activites like "%%%s%%" or description like "%%%s%%"`, q, q, q)
}

func (f *Fetcher) datasetURL(dataset, path string, params url.Values) string {
	return fmt.Sprintf("%s/catalog/datasets/%s/%s?%s",
		f.opts.BaseURL, url.PathEscape(dataset), path, params.Encode())
}

// Fetch returns a page of associations, filtered server side when query is
// not blank. Unfiltered results are cached; a fresh cached value is returned
// as is. When an unfiltered request times out, the last cached value is
// returned whatever its age. Otherwise a timeout yields a *FetchError and
// other failures are returned wrapped.
func (f *Fetcher) Fetch(ctx context.Context, query string) (*RecordSet, error) {
	dataset := f.opts.AssociationsDataset
	query = strings.TrimSpace(query)
	unfiltered := query == ""

	if unfiltered {
		if set, ok := f.associations.Fresh(); ok {
			f.cacheHits.Add(1)
			metrics.ObserveFetch(dataset, metrics.FetchCache)
			log.Printf("📦 Using cached %s (%d records)", dataset, len(set.Associations))

			return set, nil
		}
	}

	set, err := f.fetchRecords(ctx, query)
	if err != nil {
		if httputils.IsTimeout(err) && unfiltered {
			if last, storedAt, ok := f.associations.Last(); ok {
				f.fallbacks.Add(1)
				metrics.ObserveFetch(dataset, metrics.FetchFallback)
				log.Printf("⚠️  %s request timed out, using cached data from %s", dataset, storedAt.Format(time.RFC3339))

				return last, nil
			}
		}

		f.failures.Add(1)
		metrics.ObserveFetch(dataset, metrics.FetchFailed)

		if httputils.IsTimeout(err) {
			return nil, &FetchError{Dataset: dataset, Message: DefaultUserMessage, Timeout: true, Err: err}
		}

		return nil, fmt.Errorf("fetching %s: %w", dataset, err)
	}

	metrics.ObserveFetch(dataset, metrics.FetchNetwork)
	log.Printf("✅ Loaded %d/%d %s records", len(set.Associations), set.TotalCount, dataset)

	if unfiltered {
		f.associations.Store(set)
	}

	return set, nil
}

func (f *Fetcher) fetchRecords(ctx context.Context, query string) (*RecordSet, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(f.opts.PageSize))
	params.Set("select", strings.Join(associationFields, ","))

	if query != "" {
		params.Set("where", WhereClause(query))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.datasetURL(f.opts.AssociationsDataset, "records", params), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	f.requests.Add(1)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := httputils.AsReader(resp, "")
	if err != nil {
		return nil, err
	}

	var page recordsResponse
	if err := json.NewDecoder(body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	set := &RecordSet{
		TotalCount:   page.TotalCount,
		Associations: make([]poi.Association, 0, len(page.Results)),
		FetchedAt:    time.Now(),
	}

	if f.opts.Now != nil {
		set.FetchedAt = f.opts.Now()
	}

	for i := range page.Results {
		set.Associations = append(set.Associations, page.Results[i].toAssociation())
	}

	return set, nil
}

// Preload warms the associations cache. Failures are only logged.
func (f *Fetcher) Preload(ctx context.Context) {
	if _, err := f.Fetch(ctx, ""); err != nil {
		log.Printf("⚠️  Preloading %s failed: %v", f.opts.AssociationsDataset, err)
	}
}

// Clear empties the dataset caches.
func (f *Fetcher) Clear() {
	f.associations.Clear()
	f.toilets.Clear()
}

// Stats returns a snapshot of the counters.
func (f *Fetcher) Stats() Stats {
	return Stats{
		Requests:  f.requests.Load(),
		CacheHits: f.cacheHits.Load(),
		Fallbacks: f.fallbacks.Load(),
		Failures:  f.failures.Load(),
	}
}
