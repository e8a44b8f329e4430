package tracker

import (
	"sync"
	"testing"
)

func TestHitRateEmpty(t *testing.T) {
	tr := New()
	if got := tr.HitRatePercent(); got != 0 {
		t.Errorf("expected 0 with no observations, got %v", got)
	}
}

func TestHitRatePercent(t *testing.T) {
	tr := New()
	tr.RecordHit()
	tr.RecordHit()
	tr.RecordHit()
	tr.RecordMiss()

	if got := tr.HitRatePercent(); got != 75 {
		t.Errorf("expected 75, got %v", got)
	}
	if tr.Hits() != 3 || tr.Misses() != 1 {
		t.Errorf("unexpected counters: hits=%d misses=%d", tr.Hits(), tr.Misses())
	}
}

func TestHitRateBounds(t *testing.T) {
	tr := New()
	tr.RecordMiss()
	if got := tr.HitRatePercent(); got != 0 {
		t.Errorf("expected 0 with only misses, got %v", got)
	}

	tr = New()
	tr.RecordHit()
	if got := tr.HitRatePercent(); got != 100 {
		t.Errorf("expected 100 with only hits, got %v", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordHit()
				tr.RecordMiss()
			}
		}()
	}
	wg.Wait()

	if tr.Hits() != 1000 || tr.Misses() != 1000 {
		t.Errorf("lost updates: hits=%d misses=%d", tr.Hits(), tr.Misses())
	}
	if tr.HitRatePercent() != 50 {
		t.Errorf("expected 50, got %v", tr.HitRatePercent())
	}
}
