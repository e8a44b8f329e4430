package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homely-rentals/homely/pkg/cache/memory"
	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/tracker"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// slowPinger advances the clock by delay to simulate a store round trip.
type slowPinger struct {
	clock *fakeClock
	delay time.Duration
	err   error
}

func (p *slowPinger) Ping(context.Context) error {
	p.clock.t = p.clock.t.Add(p.delay)
	return p.err
}

type fakeCounter struct {
	n     int64
	err   error
	since time.Time
}

func (c *fakeCounter) CountSince(_ context.Context, since time.Time) (int64, error) {
	c.since = since
	return c.n, c.err
}

func warmTracker(hits, misses int) *tracker.HitRate {
	tr := tracker.New()
	for i := 0; i < hits; i++ {
		tr.RecordHit()
	}
	for i := 0; i < misses; i++ {
		tr.RecordMiss()
	}
	return tr
}

func TestReportSlowStore(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	r := New(&slowPinger{clock: clock, delay: 600 * time.Millisecond}, &fakeCounter{},
		memory.New(time.Minute), warmTracker(9, 1), WithClock(clock.Now))

	rep, err := r.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(600), rep.Performance.StoreLatencyMs)
	require.Len(t, rep.Recommendations, 1)
	assert.Equal(t, "database", rep.Recommendations[0].Type)
	assert.Equal(t, models.PriorityHigh, rep.Recommendations[0].Priority)
	assert.Equal(t, models.HealthCritical, rep.Status)
}

func TestReportHealthy(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	counter := &fakeCounter{n: MaxSlowOperations}
	cache := memory.New(time.Minute)
	cache.Set("k", []byte("vv"))

	r := New(&slowPinger{clock: clock, delay: 10 * time.Millisecond}, counter,
		cache, warmTracker(7, 3), WithClock(clock.Now))

	rep, err := r.Report(context.Background())
	require.NoError(t, err)

	assert.Empty(t, rep.Recommendations)
	assert.NotNil(t, rep.Recommendations)
	assert.Equal(t, models.HealthGood, rep.Status)
	assert.Equal(t, 1, rep.Performance.CacheSize)
	assert.Equal(t, int64(3), rep.Performance.CacheMemoryBytesApprox)
	assert.Equal(t, 70.0, rep.Performance.HitRatePercent)
	assert.Equal(t, int64(10), rep.Performance.FunctionLatencyMs)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), rep.Performance.Timestamp)
	assert.Equal(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), counter.since)
}

func TestReportWarnings(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := New(&slowPinger{clock: clock}, &fakeCounter{n: MaxSlowOperations + 1},
		memory.New(time.Minute), tracker.New(), WithClock(clock.Now))

	rep, err := r.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Recommendations, 2)
	assert.Equal(t, "cache", rep.Recommendations[0].Type)
	assert.Equal(t, "queries", rep.Recommendations[1].Type)
	for _, rec := range rep.Recommendations {
		assert.Equal(t, models.PriorityMedium, rec.Priority)
	}
	assert.Equal(t, models.HealthWarning, rep.Status)
}

func TestReportPingFailure(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := New(&slowPinger{clock: clock, err: errors.New("database is locked")}, nil,
		memory.New(time.Minute), tracker.New(), WithClock(clock.Now))

	_, err := r.Report(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestReportSlowCountFailureDegrades(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	r := New(&slowPinger{clock: clock}, &fakeCounter{n: 99, err: errors.New("no such table")},
		memory.New(time.Minute), warmTracker(1, 0), WithClock(clock.Now))

	rep, err := r.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Performance.SlowOperationCount)
	assert.Equal(t, models.HealthGood, rep.Status)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, models.HealthGood, Status(nil))
	assert.Equal(t, models.HealthWarning, Status([]models.Recommendation{{Priority: models.PriorityLow}}))
	assert.Equal(t, models.HealthCritical, Status([]models.Recommendation{
		{Priority: models.PriorityMedium},
		{Priority: models.PriorityHigh},
	}))
}

func TestCacheStats(t *testing.T) {
	cache := memory.New(time.Minute)
	cache.Set("search:{}", []byte("[]"))
	stats := CacheStats(cache, warmTracker(3, 1))

	assert.Equal(t, models.CacheStats{
		Entries:     1,
		ApproxBytes: int64(len("search:{}") + 2),
		Hits:        3,
		Misses:      1,
		HitRate:     75,
	}, stats)
}
