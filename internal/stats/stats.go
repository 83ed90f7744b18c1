// Package stats keeps the per-day counters shown by `cageclock stats`:
// videos filtered, videos watched and time spent focusing. Counters reset
// once the reset window has elapsed since the last reset.
package stats

import (
	"context"
	"sync"
	"time"

	"cageclock/internal/kvstore"
)

// DefaultResetInterval is the age after which daily counters reset.
const DefaultResetInterval = 24 * time.Hour

// Daily is a snapshot of today's counters. FocusedToday includes the running
// session, if any.
type Daily struct {
	VideosFiltered int64         `json:"videosFilteredToday"`
	VideosWatched  int64         `json:"videosWatchedToday"`
	FocusedToday   time.Duration `json:"timeFocusedToday"`
	LastReset      time.Time     `json:"lastStatsReset"`
	SessionStart   *time.Time    `json:"sessionStartTime,omitempty"`
}

// Recorder updates counters in the KV store.
type Recorder struct {
	kv    *kvstore.Store
	reset time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithResetInterval overrides the reset window.
func WithResetInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.reset = d
		}
	}
}

// New constructs a Recorder.
func New(kv *kvstore.Store, opts ...Option) *Recorder {
	r := &Recorder{kv: kv, reset: DefaultResetInterval, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type state struct {
	filtered     int64
	watched      int64
	focusedMs    int64
	lastReset    time.Time
	sessionStart *time.Time
}

func (r *Recorder) load(ctx context.Context) (state, error) {
	var st state
	var lastReset, sessionStart time.Time
	reads := []struct {
		key string
		dst any
	}{
		{kvstore.KeyVideosFilteredToday, &st.filtered},
		{kvstore.KeyVideosWatchedToday, &st.watched},
		{kvstore.KeyTimeFocusedToday, &st.focusedMs},
		{kvstore.KeyLastStatsReset, &lastReset},
	}
	for _, read := range reads {
		if _, err := r.kv.GetJSON(ctx, read.key, read.dst); err != nil {
			return state{}, err
		}
	}
	ok, err := r.kv.GetJSON(ctx, kvstore.KeySessionStartTime, &sessionStart)
	if err != nil {
		return state{}, err
	}
	st.lastReset = lastReset
	if ok && !sessionStart.IsZero() {
		st.sessionStart = &sessionStart
	}
	return st, nil
}

// rollover zeroes the counters when the window has passed. It reports whether
// a reset happened.
func (r *Recorder) rollover(st *state, now time.Time) bool {
	if !st.lastReset.IsZero() && now.Sub(st.lastReset) < r.reset {
		return false
	}
	st.filtered = 0
	st.watched = 0
	st.focusedMs = 0
	st.lastReset = now
	if st.sessionStart != nil {
		start := now
		st.sessionStart = &start
	}
	return true
}

func (r *Recorder) save(ctx context.Context, st state) error {
	values := map[string]any{
		kvstore.KeyVideosFilteredToday: st.filtered,
		kvstore.KeyVideosWatchedToday:  st.watched,
		kvstore.KeyTimeFocusedToday:    st.focusedMs,
		kvstore.KeyLastStatsReset:      st.lastReset,
	}
	if st.sessionStart == nil {
		values[kvstore.KeySessionStartTime] = nil
	} else {
		values[kvstore.KeySessionStartTime] = *st.sessionStart
	}
	return r.kv.SetMany(ctx, values)
}

func (r *Recorder) update(ctx context.Context, fn func(st *state, now time.Time)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load(ctx)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	r.rollover(&st, now)
	fn(&st, now)
	return r.save(ctx, st)
}

// RecordFiltered adds n to the filtered counter.
func (r *Recorder) RecordFiltered(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return r.update(ctx, func(st *state, _ time.Time) {
		st.filtered += int64(n)
	})
}

// RecordWatch increments the watched counter.
func (r *Recorder) RecordWatch(ctx context.Context) error {
	return r.update(ctx, func(st *state, _ time.Time) {
		st.watched++
	})
}

// StartSession marks the beginning of a focus session. An already running
// session is left alone.
func (r *Recorder) StartSession(ctx context.Context) error {
	return r.update(ctx, func(st *state, now time.Time) {
		if st.sessionStart == nil {
			start := now
			st.sessionStart = &start
		}
	})
}

// EndSession adds the running session's elapsed time to today's total.
func (r *Recorder) EndSession(ctx context.Context) error {
	return r.update(ctx, func(st *state, now time.Time) {
		if st.sessionStart == nil {
			return
		}
		if elapsed := now.Sub(*st.sessionStart); elapsed > 0 {
			st.focusedMs += elapsed.Milliseconds()
		}
		st.sessionStart = nil
	})
}

// Today returns the current counters, applying a pending reset first.
func (r *Recorder) Today(ctx context.Context) (Daily, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load(ctx)
	if err != nil {
		return Daily{}, err
	}
	now := r.now().UTC()
	if r.rollover(&st, now) {
		if err := r.save(ctx, st); err != nil {
			return Daily{}, err
		}
	}
	focused := time.Duration(st.focusedMs) * time.Millisecond
	if st.sessionStart != nil {
		if running := now.Sub(*st.sessionStart); running > 0 {
			focused += running
		}
	}
	return Daily{
		VideosFiltered: st.filtered,
		VideosWatched:  st.watched,
		FocusedToday:   focused,
		LastReset:      st.lastReset,
		SessionStart:   st.sessionStart,
	}, nil
}
