// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package opendata

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/cartobdx/cartobdx/metrics"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

// FetchToilets downloads the toilets CSV export and parses it. The parsed
// rows are cached like unfiltered associations, including the stale
// fallback on timeout.
func (f *Fetcher) FetchToilets(ctx context.Context) ([]poi.Toilet, error) {
	dataset := f.opts.ToiletsDataset

	if toilets, ok := f.toilets.Fresh(); ok {
		f.cacheHits.Add(1)
		metrics.ObserveFetch(dataset, metrics.FetchCache)

		return toilets, nil
	}

	toilets, err := f.fetchToiletsCSV(ctx)
	if err != nil {
		if httputils.IsTimeout(err) {
			if last, storedAt, ok := f.toilets.Last(); ok {
				f.fallbacks.Add(1)
				metrics.ObserveFetch(dataset, metrics.FetchFallback)
				log.Printf("⚠️  %s export timed out, using cached data from %s", dataset, storedAt.Format(time.RFC3339))

				return last, nil
			}
		}

		f.failures.Add(1)
		metrics.ObserveFetch(dataset, metrics.FetchFailed)

		if httputils.IsTimeout(err) {
			return nil, &FetchError{Dataset: dataset, Message: ToiletsUserMessage, Timeout: true, Err: err}
		}

		return nil, fmt.Errorf("fetching %s: %w", dataset, err)
	}

	metrics.ObserveFetch(dataset, metrics.FetchNetwork)
	log.Printf("✅ Loaded %d %s rows", len(toilets), dataset)
	f.toilets.Store(toilets)

	return toilets, nil
}

func (f *Fetcher) fetchToiletsCSV(ctx context.Context) ([]poi.Toilet, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("delimiter", ";")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.datasetURL(f.opts.ToiletsDataset, "exports/csv", params), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "text/csv")

	f.requests.Add(1)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := httputils.AsReader(resp, "text/csv")
	if err != nil {
		return nil, err
	}

	return poi.ParseToiletsCSVReader(body)
}
