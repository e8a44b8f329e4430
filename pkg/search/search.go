// Package search answers listing searches from the in-memory cache when it can
// and from the backing store when it must, writing fresh results back.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/homely-rentals/homely/pkg/cache/memory"
	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/store"
	"github.com/homely-rentals/homely/pkg/tracker"
)

const (
	// DefaultMaxResults caps every search result list.
	DefaultMaxResults = 50
	// KeyNamespace prefixes search cache keys.
	KeyNamespace = "search"
)

// Store is the subset of the backing store used by searches.
type Store interface {
	ExecutePlan(ctx context.Context, p store.Plan) ([]models.Listing, error)
	IDsWithinRadius(ctx context.Context, center models.GeoPoint, radiusKm float64) ([]string, error)
	RecordSearch(ctx context.Context, query string, at time.Time) error
}

// Cache is the subset of the cache used by searches.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// SlowLog receives operations that exceeded the slow threshold.
type SlowLog interface {
	Record(ctx context.Context, operation string, d time.Duration, details string) error
}

// Config tunes an Optimizer.
type Config struct {
	MaxResults int
	// CollapseMisses shares one backing-store query between concurrent
	// misses on the same key.
	CollapseMisses bool
	// SlowThreshold is the latency above which a search is written to the
	// slow log. Zero disables slow logging.
	SlowThreshold time.Duration
}

// Optimizer runs cached listing searches.
type Optimizer struct {
	store   Store
	cache   Cache
	tracker tracker.Recorder
	slow    SlowLog
	cfg     Config
	log     logrus.FieldLogger
	now     func() time.Time
	group   singleflight.Group
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithClock replaces the time source used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// WithLogger sets the logger for non-fatal side-effect failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Optimizer) {
		if log != nil {
			o.log = log
		}
	}
}

// WithSlowLog records searches slower than Config.SlowThreshold.
func WithSlowLog(slow SlowLog) Option {
	return func(o *Optimizer) { o.slow = slow }
}

// New creates an Optimizer.
func New(st Store, cache Cache, rec tracker.Recorder, cfg Config, opts ...Option) *Optimizer {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &Optimizer{
		store:   st,
		cache:   cache,
		tracker: rec,
		cfg:     cfg,
		log:     discard,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search returns listings matching filters. A cache hit returns immediately
// with Cached set. On a miss the backing store is queried and the projected
// results are cached under the filters' key. A failed store call is returned
// as an error; stale cache content is never served in its place.
func (o *Optimizer) Search(ctx context.Context, filters models.SearchFilters) (models.SearchResult, error) {
	start := o.now()

	key, err := memory.BuildKey(KeyNamespace, filters)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("build search key: %w", err)
	}

	if raw, ok := o.cache.Get(key); ok {
		var results []models.OptimizedListing
		if err := json.Unmarshal(raw, &results); err == nil {
			o.tracker.RecordHit()
			return models.SearchResult{
				Results:   results,
				Cached:    true,
				LatencyMs: o.now().Sub(start).Milliseconds(),
			}, nil
		}
		o.log.WithField("key", key).Warn("discarding undecodable cache entry")
	}
	o.tracker.RecordMiss()

	var results []models.OptimizedListing
	if o.cfg.CollapseMisses {
		v, err, _ := o.group.Do(key, func() (any, error) {
			return o.load(ctx, key, filters)
		})
		if err != nil {
			return models.SearchResult{}, err
		}
		results = v.([]models.OptimizedListing)
	} else {
		results, err = o.load(ctx, key, filters)
		if err != nil {
			return models.SearchResult{}, err
		}
	}

	elapsed := o.now().Sub(start)
	o.afterMiss(ctx, key, filters, elapsed)

	return models.SearchResult{
		Results:   results,
		Cached:    false,
		LatencyMs: elapsed.Milliseconds(),
	}, nil
}

// load queries the backing store, projects the rows and writes them to the cache.
func (o *Optimizer) load(ctx context.Context, key string, filters models.SearchFilters) ([]models.OptimizedListing, error) {
	plan := Plan(filters, o.cfg.MaxResults)

	if filters.HasRadius() {
		ids, err := o.store.IDsWithinRadius(ctx, *filters.Location, *filters.RadiusKm)
		if err != nil {
			return nil, fmt.Errorf("radius lookup: %w", err)
		}
		if len(ids) == 0 {
			results := []models.OptimizedListing{}
			o.write(key, results)
			return results, nil
		}
		plan.RestrictIDs = true
		plan.IDs = ids
	}

	listings, err := o.store.ExecutePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	results := make([]models.OptimizedListing, 0, len(listings))
	for _, l := range listings {
		results = append(results, Project(l))
	}
	o.write(key, results)
	return results, nil
}

func (o *Optimizer) write(key string, results []models.OptimizedListing) {
	raw, err := json.Marshal(results)
	if err != nil {
		o.log.WithError(err).WithField("key", key).Warn("search results not cached")
		return
	}
	o.cache.Set(key, raw)
}

func (o *Optimizer) afterMiss(ctx context.Context, key string, filters models.SearchFilters, elapsed time.Duration) {
	if filters.Text != "" {
		if err := o.store.RecordSearch(ctx, filters.Text, o.now()); err != nil {
			o.log.WithError(err).Warn("search log write failed")
		}
	}
	if o.slow != nil && o.cfg.SlowThreshold > 0 && elapsed > o.cfg.SlowThreshold {
		if err := o.slow.Record(ctx, "optimize-search", elapsed, key); err != nil {
			o.log.WithError(err).Warn("slow operation write failed")
		}
	}
}

// Plan translates filters into a store query plan capped at limit rows.
// Radius restriction is resolved separately by Search.
func Plan(f models.SearchFilters, limit int) store.Plan {
	p := store.Plan{Text: f.Text, Limit: limit}
	if f.MinPrice != nil {
		p.Predicates = append(p.Predicates, store.Predicate{Column: "rent", Op: store.OpGte, Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		p.Predicates = append(p.Predicates, store.Predicate{Column: "rent", Op: store.OpLte, Value: *f.MaxPrice})
	}
	if f.Rooms != nil {
		p.Predicates = append(p.Predicates, store.Predicate{Column: "rooms", Op: store.OpEq, Value: *f.Rooms})
	}
	if f.Furnished != nil {
		p.Predicates = append(p.Predicates, store.Predicate{Column: "furnished", Op: store.OpEq, Value: *f.Furnished})
	}
	if f.City != "" {
		p.Predicates = append(p.Predicates, store.Predicate{Column: "city", Op: store.OpEq, Value: f.City})
	}
	return p
}

// Project reduces a full listing to the fields search responses carry.
// The primary image wins; otherwise the first image; otherwise none.
func Project(l models.Listing) models.OptimizedListing {
	out := models.OptimizedListing{
		ID:         l.ID,
		Title:      l.Title,
		Address:    l.Address,
		Rent:       l.Rent,
		Rooms:      l.Rooms,
		Size:       l.Size,
		Furnished:  l.Furnished,
		City:       l.City,
		CreatedAt:  l.CreatedAt,
		TotalViews: l.Analytics.Views,
		TotalLikes: l.Analytics.Likes,
	}
	for _, img := range l.Images {
		if img.IsPrimary {
			out.PrimaryImageURL = img.URL
			return out
		}
	}
	if len(l.Images) > 0 {
		out.PrimaryImageURL = l.Images[0].URL
	}
	return out
}
