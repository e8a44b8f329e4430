package tracker

import "sync/atomic"

// Recorder records cache lookup outcomes.
type Recorder interface {
	RecordHit()
	RecordMiss()
}

// HitRate keeps running hit and miss counters for the life of the process.
// Counters only grow; there is no reset or windowing.
type HitRate struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a HitRate with zeroed counters.
func New() *HitRate {
	return &HitRate{}
}

// RecordHit counts a lookup that found a live entry.
func (t *HitRate) RecordHit() { t.hits.Add(1) }

// RecordMiss counts a lookup that found nothing.
func (t *HitRate) RecordMiss() { t.misses.Add(1) }

// Hits returns the number of recorded hits.
func (t *HitRate) Hits() int64 { return t.hits.Load() }

// Misses returns the number of recorded misses.
func (t *HitRate) Misses() int64 { return t.misses.Load() }

// HitRatePercent returns hits / (hits+misses) * 100, or 0 before any lookup.
func (t *HitRate) HitRatePercent() float64 {
	hits := t.hits.Load()
	total := hits + t.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
