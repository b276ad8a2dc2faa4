package summarize

import (
	"testing"
	"time"
)

func TestStatsSnapshot(t *testing.T) {
	s := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400} {
		s.Record(ms)
	}

	snap := s.Snapshot()
	if snap.Count != 4 {
		t.Fatalf("Count = %d, want 4", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 400 {
		t.Errorf("Min/Max = %d/%d, want 100/400", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 250 {
		t.Errorf("AvgMs = %v, want 250", snap.AvgMs)
	}
	if snap.P50Ms != 250 {
		t.Errorf("P50Ms = %v, want 250", snap.P50Ms)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := NewStats(time.Hour)
	if snap := s.Snapshot(); snap.Count != 0 {
		t.Errorf("empty stats snapshot = %+v", snap)
	}
}

func TestStatsNegativeDurationClamped(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(-50)
	if snap := s.Snapshot(); snap.MinMs != 0 {
		t.Errorf("MinMs = %d, want 0", snap.MinMs)
	}
}
