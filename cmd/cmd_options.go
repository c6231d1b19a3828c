// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver

	"github.com/cartobdx/cartobdx/annotation"
	"github.com/cartobdx/cartobdx/geocode"
	"github.com/cartobdx/cartobdx/loader"
	"github.com/cartobdx/cartobdx/opendata"
	"github.com/cartobdx/cartobdx/utils/httputils"
)

const (
	defaultEnvFile = ".env"
	dbFile         = "cartobdx.duckdb"
)

// options are the persistent flags shared by every command.
type options struct {
	EnvFile       string
	DbPath        string
	OpendataURL   string
	NominatimURL  string
	GoogleURL     string
	GoogleProject string
	UserAgent     string
	TraceHTTP     bool
	TraceHTTPBody bool
	Provider      string
	BatchSize     int
	BatchDelay    time.Duration
	Slow          bool
	CacheSize     int
}

var appOptions = &options{}

func (o *options) httpClient() *http.Client {
	userAgent := o.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("cartobdx/%s (+https://github.com/cartobdx/cartobdx)", Version)
	}

	return httputils.NewClient(&httputils.ClientOptions{
		UserAgent:           userAgent,
		EnableHTTPTrace:     o.TraceHTTP,
		EnableHTTPBodyTrace: o.TraceHTTPBody,
	})
}

func (o *options) fetcher(client *http.Client) *opendata.Fetcher {
	return opendata.NewFetcher(&opendata.Options{
		BaseURL:    o.OpendataURL,
		HTTPClient: client,
	})
}

func (o *options) geocoderOptions() *geocode.Options {
	opts := &geocode.Options{
		BatchSize:  o.BatchSize,
		BatchDelay: o.BatchDelay,
		CacheSize:  o.CacheSize,
	}

	if o.Slow {
		if opts.BatchSize == 0 {
			opts.BatchSize = geocode.SlowBatchSize
		}

		if opts.BatchDelay == 0 {
			opts.BatchDelay = geocode.SlowBatchDelay
		}
	}

	return opts
}

func (o *options) geocoder(ctx context.Context, client *http.Client) (*geocode.CachedGeocoder, error) {
	switch o.Provider {
	case "", geocode.ProviderNominatim:
		log.Println("📍 Geocoding: Nominatim")

		return geocode.NewNominatim(geocode.NewNominatimGeocoder(o.NominatimURL, client), o.geocoderOptions()), nil
	case "google":
		apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = geocode.APIKeyFromADC(ctx, o.GoogleProject, geocode.GoogleKeyDisplayName)
			if err != nil {
				return nil, fmt.Errorf("retrieving Google Maps API key: %w", err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		log.Println("📍 Geocoding: Google Maps")

		opts := o.geocoderOptions()
		opts.Provider = geocode.ProviderGoogleMaps

		return geocode.New(geocode.NewGoogleMapsGeocoder(apiKey, o.GoogleURL, client), opts), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q (nominatim or google)", o.Provider)
	}
}

// pipeline wires the fetcher, geocoder and loader.
type pipeline struct {
	fetcher  *opendata.Fetcher
	geocoder *geocode.CachedGeocoder
	loader   *loader.Loader
}

func (o *options) pipeline(ctx context.Context) (*pipeline, error) {
	client := o.httpClient()
	fetcher := o.fetcher(client)

	geocoder, err := o.geocoder(ctx, client)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		fetcher:  fetcher,
		geocoder: geocoder,
		loader:   loader.New(fetcher, fetcher, geocoder),
	}, nil
}

// openAnnotations opens the local database holding the annotations.
func (o *options) openAnnotations() (*sql.DB, *annotation.Store, error) {
	if err := os.MkdirAll(o.DbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(o.DbPath, dbFile))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	kv := annotation.NewSQLKVStore(db)
	if err := kv.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating annotation schema: %w", err)
	}

	return db, annotation.NewStore(kv), nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&appOptions.EnvFile, "env-file", defaultEnvFile, "Fichier d'environnement à charger")
	flags.StringVar(&appOptions.DbPath, "db-path", "db", "Répertoire de la base locale des annotations")
	flags.StringVar(&appOptions.OpendataURL, "opendata-url", opendata.DefaultBaseURL, "URL de l'API open data")
	flags.StringVar(&appOptions.NominatimURL, "nominatim-url", geocode.DefaultNominatimURL, "URL de recherche Nominatim")
	flags.StringVar(&appOptions.GoogleURL, "google-url", geocode.DefaultGoogleMapsURL, "URL de l'API Google Geocoding")
	flags.StringVar(&appOptions.GoogleProject, "google-project", "", "Projet Google Cloud de la clé API (par défaut celui des identifiants)")
	flags.StringVar(&appOptions.UserAgent, "user-agent", "", "User-Agent des requêtes HTTP")
	flags.BoolVar(&appOptions.TraceHTTP, "trace-http", false, "Trace les requêtes HTTP")
	flags.BoolVar(&appOptions.TraceHTTPBody, "trace-http-body", false, "Trace les requêtes HTTP avec leur contenu")
	flags.StringVar(&appOptions.Provider, "provider", geocode.ProviderNominatim, "Service de géocodage: nominatim ou google")
	flags.IntVar(&appOptions.BatchSize, "batch-size", 0, "Adresses géocodées en parallèle (par défaut 5, 3 avec --slow)")
	flags.DurationVar(&appOptions.BatchDelay, "batch-delay", 0, "Pause entre deux lots (par défaut 200ms, 2s avec --slow)")
	flags.BoolVar(&appOptions.Slow, "slow", false, "Lots de 3 adresses espacés de 2s")
	flags.IntVar(&appOptions.CacheSize, "cache-size", geocode.DefaultCacheSize, "Nombre d'adresses gardées en cache")
}
