package stats_test

import (
	"context"
	"testing"
	"time"

	"cageclock/internal/stats"
	"cageclock/internal/testsupport"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRecorder(t *testing.T) (*stats.Recorder, *clock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenStore(t, cfg)
	c := &clock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	return stats.New(kv, stats.WithClock(c.Now)), c
}

func TestCountersAccumulate(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	if err := rec.RecordFiltered(ctx, 3); err != nil {
		t.Fatalf("RecordFiltered returned error: %v", err)
	}
	if err := rec.RecordFiltered(ctx, 2); err != nil {
		t.Fatalf("RecordFiltered returned error: %v", err)
	}
	if err := rec.RecordWatch(ctx); err != nil {
		t.Fatalf("RecordWatch returned error: %v", err)
	}

	today, err := rec.Today(ctx)
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if today.VideosFiltered != 5 || today.VideosWatched != 1 {
		t.Fatalf("unexpected counters: %+v", today)
	}
}

func TestSessionAccounting(t *testing.T) {
	rec, c := newRecorder(t)
	ctx := context.Background()

	if err := rec.StartSession(ctx); err != nil {
		t.Fatalf("StartSession returned error: %v", err)
	}
	c.now = c.now.Add(20 * time.Minute)
	if err := rec.StartSession(ctx); err != nil {
		t.Fatalf("second StartSession returned error: %v", err)
	}
	today, _ := rec.Today(ctx)
	if today.FocusedToday != 20*time.Minute || today.SessionStart == nil {
		t.Fatalf("expected running session of 20m, got %+v", today)
	}

	c.now = c.now.Add(10 * time.Minute)
	if err := rec.EndSession(ctx); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}
	today, _ = rec.Today(ctx)
	if today.FocusedToday != 30*time.Minute || today.SessionStart != nil {
		t.Fatalf("expected 30m banked, got %+v", today)
	}
}

func TestResetAfterWindow(t *testing.T) {
	rec, c := newRecorder(t)
	ctx := context.Background()

	_ = rec.RecordFiltered(ctx, 7)
	c.now = c.now.Add(23 * time.Hour)
	if today, _ := rec.Today(ctx); today.VideosFiltered != 7 {
		t.Fatalf("reset too early: %+v", today)
	}

	c.now = c.now.Add(time.Hour)
	today, err := rec.Today(ctx)
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if today.VideosFiltered != 0 || !today.LastReset.Equal(c.now) {
		t.Fatalf("expected reset at 24h, got %+v", today)
	}
}
