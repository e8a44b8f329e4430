// Package warmup preloads frequently requested datasets into the cache.
package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/search"
)

// Cache keys written by Popular.
const (
	KeyApartments       = "popular:apartments"
	KeyCities           = "popular:cities"
	KeyPriceStats       = "popular:price-stats"
	KeyTrendingSearches = "popular:trending-searches"
)

// Store is the backing-store surface used for warmup queries.
type Store interface {
	PopularListings(ctx context.Context, n int) ([]models.Listing, error)
	Cities(ctx context.Context) ([]models.CityCount, error)
	PriceStats(ctx context.Context) ([]models.PriceStats, error)
	TrendingSearches(ctx context.Context, since time.Time, n int) ([]models.TrendingSearch, error)
}

// Cache receives the warmed datasets.
type Cache interface {
	Set(key string, value []byte)
}

// Config sizes the warmed datasets.
type Config struct {
	PopularLimit   int
	TrendingLimit  int
	TrendingWindow time.Duration
}

// Warmer populates the cache with popular data.
type Warmer struct {
	store Store
	cache Cache
	cfg   Config
	now   func() time.Time
}

// New creates a Warmer. Unset limits fall back to 20 listings, 10 trending
// queries and a seven day trending window.
func New(st Store, cache Cache, cfg Config, now func() time.Time) *Warmer {
	if cfg.PopularLimit <= 0 {
		cfg.PopularLimit = 20
	}
	if cfg.TrendingLimit <= 0 {
		cfg.TrendingLimit = 10
	}
	if cfg.TrendingWindow <= 0 {
		cfg.TrendingWindow = 7 * 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Warmer{store: st, cache: cache, cfg: cfg, now: now}
}

// Popular queries every popular dataset and caches each one. All queries run
// before anything is written, so a store failure leaves the cache untouched.
func (w *Warmer) Popular(ctx context.Context) (models.PopularCounts, error) {
	listings, err := w.store.PopularListings(ctx, w.cfg.PopularLimit)
	if err != nil {
		return models.PopularCounts{}, fmt.Errorf("popular listings: %w", err)
	}
	cities, err := w.store.Cities(ctx)
	if err != nil {
		return models.PopularCounts{}, fmt.Errorf("popular cities: %w", err)
	}
	prices, err := w.store.PriceStats(ctx)
	if err != nil {
		return models.PopularCounts{}, fmt.Errorf("price stats: %w", err)
	}
	trending, err := w.store.TrendingSearches(ctx, w.now().Add(-w.cfg.TrendingWindow), w.cfg.TrendingLimit)
	if err != nil {
		return models.PopularCounts{}, fmt.Errorf("trending searches: %w", err)
	}

	apartments := make([]models.OptimizedListing, 0, len(listings))
	for _, l := range listings {
		apartments = append(apartments, search.Project(l))
	}

	entries := []struct {
		key   string
		value any
	}{
		{KeyApartments, apartments},
		{KeyCities, nonNil(cities)},
		{KeyPriceStats, nonNil(prices)},
		{KeyTrendingSearches, nonNil(trending)},
	}
	encoded := make([][]byte, len(entries))
	for i, e := range entries {
		raw, err := json.Marshal(e.value)
		if err != nil {
			return models.PopularCounts{}, fmt.Errorf("encode %s: %w", e.key, err)
		}
		encoded[i] = raw
	}
	for i, e := range entries {
		w.cache.Set(e.key, encoded[i])
	}

	return models.PopularCounts{
		PopularApartments: len(apartments),
		Cities:            len(cities),
		PriceStats:        len(prices),
		TrendingSearches:  len(trending),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
