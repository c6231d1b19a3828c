// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cartobdx/cartobdx/metrics"
	"github.com/cartobdx/cartobdx/spatial"
)

// Defaults of Options.
const (
	DefaultThrottle   = 50 * time.Millisecond
	DefaultTimeout    = 5 * time.Second
	DefaultBatchSize  = 5
	DefaultBatchDelay = 200 * time.Millisecond

	// SlowBatchSize and SlowBatchDelay are gentler settings for the public
	// Nominatim instance when loading the whole directory.
	SlowBatchSize  = 3
	SlowBatchDelay = 2 * time.Second
)

// Options tunes a CachedGeocoder. Zero values take the defaults; a
// negative Throttle or BatchDelay disables the wait.
type Options struct {
	Throttle   time.Duration
	Timeout    time.Duration
	BatchSize  int
	BatchDelay time.Duration
	CacheSize  int
	Bounds     spatial.BoundingBox
	Provider   string
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}

	if out.Throttle == 0 {
		out.Throttle = DefaultThrottle
	}

	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}

	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}

	if out.BatchDelay == 0 {
		out.BatchDelay = DefaultBatchDelay
	}

	if out.Bounds.IsZero() {
		out.Bounds = spatial.BordeauxMetropole
	}

	if out.Provider == "" {
		out.Provider = "unknown"
	}

	return out
}

// ProgressFunc receives the number of processed addresses after each chunk.
type ProgressFunc func(processed, total int)

// Stats are counters of a CachedGeocoder since creation or the last Clear.
type Stats struct {
	Lookups   int64 `json:"lookups"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Found     int64 `json:"found"`
	NotFound  int64 `json:"not_found"`
	Failures  int64 `json:"failures"`
	CacheSize int   `json:"cache_size"`
}

// CachedGeocoder wraps a provider with a per-address cache, a throttle
// before each outbound request, a per-request timeout and a bounding-box
// check. Lookups never fail: every problem resolves to a nil point.
type CachedGeocoder struct {
	provider Geocoder
	opts     Options
	cache    *Cache
	inflight singleflight.Group

	// sleep waits d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error

	lookups, hits, misses, found, notFound, failures atomic.Int64
}

// New wraps provider with the caching and batching behaviour.
func New(provider Geocoder, opts *Options) *CachedGeocoder {
	o := opts.withDefaults()

	return &CachedGeocoder{
		provider: provider,
		opts:     o,
		cache:    NewCache(o.CacheSize),
		sleep:    sleepContext,
	}
}

// NewNominatim is a CachedGeocoder over a Nominatim provider.
func NewNominatim(provider *NominatimGeocoder, opts *Options) *CachedGeocoder {
	o := opts.withDefaults()
	if opts == nil || opts.Provider == "" {
		o.Provider = ProviderNominatim
	}

	return New(provider, &o)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GeocodeOne resolves an address to a point inside the service area, or nil.
func (c *CachedGeocoder) GeocodeOne(ctx context.Context, address, city, postalCode string) *spatial.Point {
	p, _, _ := c.lookup(ctx, Address{Address: address, City: city, PostalCode: postalCode})

	return p
}

// lookup returns the point, whether the outcome is definitive (false when
// the caller's context ended first) and whether it came from the cache.
// Concurrent lookups of the same address share one provider request. That
// request runs detached from the callers' contexts, bounded by
// Options.Timeout, so a caller leaving early neither fails the others nor
// prevents the outcome from being cached.
func (c *CachedGeocoder) lookup(ctx context.Context, addr Address) (*spatial.Point, bool, bool) {
	key := CacheKey(addr.Address, addr.City, addr.PostalCode)

	c.lookups.Add(1)

	if p, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		metrics.ObserveGeocode(c.opts.Provider, metrics.GeocodeCacheHit)

		return p, true, true
	}

	c.misses.Add(1)

	if ctx.Err() != nil {
		return nil, false, false
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		if p, ok := c.cache.Get(key); ok {
			return p, nil
		}

		return c.resolve(flightCtx, addr, key), nil
	})

	var res singleflight.Result

	select {
	case <-ctx.Done():
		return nil, false, false
	case res = <-ch:
	}

	p, _ := res.Val.(*spatial.Point)
	if p != nil {
		cp := *p
		p = &cp
	}

	return p, true, false
}

// resolve queries the provider and caches the outcome.
func (c *CachedGeocoder) resolve(ctx context.Context, addr Address, key string) *spatial.Point {
	_ = c.sleep(ctx, c.opts.Throttle)

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	query := SearchQuery(addr.Address, addr.City, addr.PostalCode)

	start := time.Now()
	res, err := c.provider.Geocode(reqCtx, addr.Address, addr.City, addr.PostalCode)
	metrics.ObserveGeocodeLatency(c.opts.Provider, time.Since(start))

	if err == nil && !c.opts.Bounds.Contains(res.Point) {
		err = outOfBounds(query, res.Point)
	}

	if err != nil {
		switch errType := Classify(err); errType {
		case ErrorTypeNotFound:
			c.notFound.Add(1)
			metrics.ObserveGeocode(c.opts.Provider, metrics.GeocodeNotFound)
		case ErrorTypeOutOfBounds:
			c.notFound.Add(1)
			metrics.ObserveGeocode(c.opts.Provider, metrics.GeocodeOutOfBounds)
			log.Printf("⚠️  Geocoding %v", err)
		default:
			c.failures.Add(1)
			metrics.ObserveGeocode(c.opts.Provider, metrics.GeocodeError)

			if IsRateLimitError(err) || IsQuotaExceededError(err) {
				log.Printf("⚠️  Geocoding throttled by %s: %v", c.opts.Provider, err)
			} else {
				log.Printf("⚠️  Geocoding %q failed (%s): %v", query, errType, err)
			}
		}

		c.cache.Put(key, nil)

		return nil
	}

	c.found.Add(1)
	metrics.ObserveGeocode(c.opts.Provider, metrics.GeocodeFound)

	p := res.Point
	c.cache.Put(key, &p)

	return &p
}

// GeocodeMany resolves addresses in chunks of Options.BatchSize. Lookups of
// a chunk run concurrently; the next chunk starts after all of them finish
// and after Options.BatchDelay. The pause is skipped after the last chunk
// and after chunks answered entirely from the cache. onProgress, when not
// nil, is called after each chunk. The result is keyed by Address.ID; ids
// not reached before ctx ended are absent.
func (c *CachedGeocoder) GeocodeMany(ctx context.Context, addrs []Address, onProgress ProgressFunc) map[string]*spatial.Point {
	results := make(map[string]*spatial.Point, len(addrs))
	total := len(addrs)

	for start := 0; start < total; start += c.opts.BatchSize {
		if ctx.Err() != nil {
			log.Printf("⚠️  Geocoding interrupted after %d/%d addresses: %v", start, total, ctx.Err())

			break
		}

		end := min(start+c.opts.BatchSize, total)
		chunk := addrs[start:end]

		points := make([]*spatial.Point, len(chunk))
		definitive := make([]bool, len(chunk))
		cached := make([]bool, len(chunk))

		var g errgroup.Group
		for i, a := range chunk {
			g.Go(func() error {
				points[i], definitive[i], cached[i] = c.lookup(ctx, a)

				return nil
			})
		}

		_ = g.Wait()

		allCached := true

		for i, a := range chunk {
			if definitive[i] {
				results[a.ID] = points[i]
			}

			allCached = allCached && cached[i]
		}

		if onProgress != nil {
			onProgress(end, total)
		}

		if end < total && !allCached {
			if err := c.sleep(ctx, c.opts.BatchDelay); err != nil {
				log.Printf("⚠️  Geocoding interrupted after %d/%d addresses: %v", end, total, err)

				break
			}
		}
	}

	return results
}

// Clear forgets every cached outcome and resets the counters.
func (c *CachedGeocoder) Clear() {
	c.cache.Purge()
	c.lookups.Store(0)
	c.hits.Store(0)
	c.misses.Store(0)
	c.found.Store(0)
	c.notFound.Store(0)
	c.failures.Store(0)
}

// Stats returns a snapshot of the counters.
func (c *CachedGeocoder) Stats() Stats {
	return Stats{
		Lookups:   c.lookups.Load(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Found:     c.found.Load(),
		NotFound:  c.notFound.Load(),
		Failures:  c.failures.Load(),
		CacheSize: c.cache.Len(),
	}
}
