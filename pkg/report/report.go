// Package report samples runtime performance and derives recommendations.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homely-rentals/homely/pkg/models"
)

// Recommendation thresholds.
const (
	SlowStoreLatency    = 500 * time.Millisecond
	MinHitRatePercent   = 70.0
	MaxSlowOperations   = 5
	SlowOperationWindow = 24 * time.Hour
)

// Pinger measures a backing-store round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SlowCounter counts slow operations recorded since a point in time.
type SlowCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// CacheSizer reports cache occupancy.
type CacheSizer interface {
	Len() int
	ApproxBytes() int64
}

// HitRater reports cache lookup outcomes.
type HitRater interface {
	Hits() int64
	Misses() int64
	HitRatePercent() float64
}

// Reporter builds performance reports.
type Reporter struct {
	store   Pinger
	slow    SlowCounter
	cache   CacheSizer
	tracker HitRater
	log     logrus.FieldLogger
	now     func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock replaces the time source used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLogger sets the logger for degraded sample fields.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Reporter. slow may be nil, in which case the slow-operation
// count is always zero.
func New(store Pinger, slow SlowCounter, cache CacheSizer, tracker HitRater, opts ...Option) *Reporter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	r := &Reporter{
		store:   store,
		slow:    slow,
		cache:   cache,
		tracker: tracker,
		log:     discard,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report takes a fresh sample and evaluates it. A failed store ping fails the
// report; a failed slow-operation count is logged and reported as zero.
func (r *Reporter) Report(ctx context.Context) (models.PerformanceReport, error) {
	start := r.now()

	pingStart := r.now()
	if err := r.store.Ping(ctx); err != nil {
		return models.PerformanceReport{}, fmt.Errorf("ping store: %w", err)
	}
	storeLatency := r.now().Sub(pingStart)

	var slowCount int64
	if r.slow != nil {
		n, err := r.slow.CountSince(ctx, start.Add(-SlowOperationWindow))
		if err != nil {
			r.log.WithError(err).Warn("slow operation count unavailable")
		} else {
			slowCount = n
		}
	}

	sample := models.PerformanceSample{
		StoreLatencyMs:         storeLatency.Milliseconds(),
		CacheSize:              r.cache.Len(),
		CacheMemoryBytesApprox: r.cache.ApproxBytes(),
		HitRatePercent:         r.tracker.HitRatePercent(),
		SlowOperationCount:     slowCount,
		Timestamp:              start.UTC(),
	}
	sample.FunctionLatencyMs = r.now().Sub(start).Milliseconds()

	recs := Recommend(sample)
	return models.PerformanceReport{
		Performance:     sample,
		Recommendations: recs,
		Status:          Status(recs),
	}, nil
}

// Recommend applies each threshold rule to the sample independently.
func Recommend(s models.PerformanceSample) []models.Recommendation {
	recs := []models.Recommendation{}

	if s.StoreLatencyMs > SlowStoreLatency.Milliseconds() {
		recs = append(recs, models.Recommendation{
			Type:        "database",
			Priority:    models.PriorityHigh,
			Title:       "Slow database queries",
			Description: fmt.Sprintf("Database round trip took %dms, above the %dms threshold.", s.StoreLatencyMs, SlowStoreLatency.Milliseconds()),
			Action:      "Run optimize-db and review indexes on frequently filtered columns.",
		})
	}
	if s.HitRatePercent < MinHitRatePercent {
		recs = append(recs, models.Recommendation{
			Type:        "cache",
			Priority:    models.PriorityMedium,
			Title:       "Low cache coverage",
			Description: fmt.Sprintf("Cache hit rate is %.1f%%, below the %.0f%% target.", s.HitRatePercent, MinHitRatePercent),
			Action:      "Run cache-popular to warm frequently requested data.",
		})
	}
	if s.SlowOperationCount > MaxSlowOperations {
		recs = append(recs, models.Recommendation{
			Type:        "queries",
			Priority:    models.PriorityMedium,
			Title:       "Multiple slow queries",
			Description: fmt.Sprintf("%d slow operations were logged in the last %s.", s.SlowOperationCount, SlowOperationWindow),
			Action:      "Inspect the slow operation log and tighten search filters.",
		})
	}
	return recs
}

// Status is critical when any recommendation is high priority, warning when
// any recommendation exists and good otherwise.
func Status(recs []models.Recommendation) models.HealthStatus {
	if len(recs) == 0 {
		return models.HealthGood
	}
	for _, r := range recs {
		if r.Priority == models.PriorityHigh {
			return models.HealthCritical
		}
	}
	return models.HealthWarning
}

// CacheStats combines cache occupancy with lookup counters.
func CacheStats(cache CacheSizer, tracker HitRater) models.CacheStats {
	return models.CacheStats{
		Entries:     int64(cache.Len()),
		ApproxBytes: cache.ApproxBytes(),
		Hits:        tracker.Hits(),
		Misses:      tracker.Misses(),
		HitRate:     tracker.HitRatePercent(),
	}
}
