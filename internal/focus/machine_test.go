package focus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cageclock/internal/kvstore"
	"cageclock/internal/services"
	"cageclock/internal/testsupport"
	"cageclock/internal/youtube"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	period  time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.add(d, 0, f)
}

func (c *fakeClock) Every(d time.Duration, f func()) Timer {
	return c.add(d, d, f)
}

func (c *fakeClock) add(d, period time.Duration, f func()) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), period: period, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Set moves the clock without firing timers.
func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			next.stopped = true
		}
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *fakeClock) activeTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && t.period > 0 {
			n++
		}
	}
	return n
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && t.period == 0 {
			n++
		}
	}
	return n
}

type stubSearcher struct {
	mu     sync.Mutex
	topics []string
	sizes  []int
	err    error
}

func (s *stubSearcher) Search(_ context.Context, topic string, maxResults int, _ string) (*youtube.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.sizes = append(s.sizes, maxResults)
	if s.err != nil {
		return nil, s.err
	}
	return &youtube.SearchResult{Videos: []youtube.Video{{VideoID: "x"}}}, nil
}

func (s *stubSearcher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics)
}

type stubSessions struct {
	mu     sync.Mutex
	starts int
	ends   int
}

func (s *stubSessions) StartSession(context.Context) error {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()
	return nil
}

func (s *stubSessions) EndSession(context.Context) error {
	s.mu.Lock()
	s.ends++
	s.mu.Unlock()
	return nil
}

type stubNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *stubNotifier) record(event string) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *stubNotifier) NotifyFocusStarted(context.Context, string) error { return n.record("focus_started") }
func (n *stubNotifier) NotifyFocusStopped(context.Context, time.Duration) error {
	return n.record("focus_stopped")
}
func (n *stubNotifier) NotifyBreakStarted(context.Context, time.Time) error { return n.record("break_started") }
func (n *stubNotifier) NotifyBreakEnded(context.Context, string) error      { return n.record("break_ended") }
func (n *stubNotifier) NotifyKeyRejected(context.Context, string, string) error {
	return n.record("key_rejected")
}
func (n *stubNotifier) TestNotification(context.Context) error { return n.record("test") }

func (n *stubNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type harness struct {
	m        *Machine
	kv       *kvstore.Store
	clock    *fakeClock
	search   *stubSearcher
	sessions *stubSessions
	notifier *stubNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		kv:       kv,
		clock:    newFakeClock(),
		search:   &stubSearcher{},
		sessions: &stubSessions{},
		notifier: &stubNotifier{},
	}
	h.m = New(kv, h.search,
		WithClock(h.clock),
		WithSessions(h.sessions),
		WithNotifier(h.notifier),
	)
	h.m.syncNudges = true
	t.Cleanup(h.m.Close)
	return h
}

func (h *harness) state(t *testing.T) persisted {
	t.Helper()
	st, err := h.m.load(context.Background())
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	return st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEnableIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.MustSet(t, h.kv, kvstore.KeyFocusTopic, "golang")

	for i := 0; i < 2; i++ {
		if err := h.m.Enable(ctx); err != nil {
			t.Fatalf("Enable returned error: %v", err)
		}
	}
	if got := h.clock.activeTickers(); got != 1 {
		t.Fatalf("expected one nudge ticker, got %d", got)
	}
	if got := h.search.calls(); got != 2 {
		t.Fatalf("expected an immediate nudge per Enable, got %d", got)
	}
	if h.search.sizes[0] != DefaultNudgeResults || h.search.topics[0] != "golang" {
		t.Fatalf("unexpected nudge search: %v %v", h.search.topics, h.search.sizes)
	}

	h.clock.Advance(DefaultNudgeInterval)
	if got := h.search.calls(); got != 3 {
		t.Fatalf("expected one scheduled nudge, got %d total", got)
	}
	if !h.state(t).enabled {
		t.Fatal("expected isEnabled persisted")
	}
	if got := h.notifier.list(); len(got) != 1 || got[0] != "focus_started" {
		t.Fatalf("expected a single focus notification, got %v", got)
	}
}

func TestNudgeWithoutTopicIsSilent(t *testing.T) {
	h := newHarness(t)
	if err := h.m.Enable(context.Background()); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	h.clock.Advance(2 * DefaultNudgeInterval)
	if got := h.search.calls(); got != 0 {
		t.Fatalf("expected no searches without a topic, got %d", got)
	}
}

func TestNudgeFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.MustSet(t, h.kv, kvstore.KeyFocusTopic, "golang")
	h.search.err = services.New(services.KindQuota, 403, "quota exceeded")

	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	status, err := h.m.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.State != StateFocusing || !status.Nudging || status.LastNudgeErr == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestDisableStopsNudges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	if err := h.m.Disable(ctx); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}
	if got := h.clock.activeTickers(); got != 0 {
		t.Fatalf("expected no tickers, got %d", got)
	}
	if h.state(t).enabled {
		t.Fatal("expected isEnabled=false")
	}
	if h.sessions.starts != 1 || h.sessions.ends != 1 {
		t.Fatalf("unexpected session accounting: %+v", h.sessions)
	}
}

// tickerCallbacks returns the callbacks of every periodic timer created so far.
func (c *fakeClock) tickerCallbacks() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []func()
	for _, t := range c.timers {
		if t.period > 0 {
			out = append(out, t.f)
		}
	}
	return out
}

func TestTickAfterStopDoesNotNudge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.MustSet(t, h.kv, kvstore.KeyFocusTopic, "golang")

	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	first := h.clock.tickerCallbacks()
	if len(first) != 1 {
		t.Fatalf("expected one ticker, got %d", len(first))
	}
	if err := h.m.Disable(ctx); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}
	before := h.search.calls()

	// Deliver a tick that fired just before Disable took the lock.
	first[0]()
	if got := h.search.calls(); got != before {
		t.Fatalf("expected no nudge from a stopped ticker, got %d searches", got-before)
	}

	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	before = h.search.calls()
	first[0]()
	if got := h.search.calls(); got != before {
		t.Fatalf("expected a replaced ticker to stay silent, got %d searches", got-before)
	}
	callbacks := h.clock.tickerCallbacks()
	callbacks[len(callbacks)-1]()
	if got := h.search.calls(); got != before+1 {
		t.Fatalf("expected the live ticker to nudge once, got %d", got-before)
	}
}

func TestBreakLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testsupport.MustSet(t, h.kv, kvstore.KeyFocusTopic, "golang")
	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}

	start := h.clock.Now()
	end, err := h.m.StartBreak(ctx)
	if err != nil {
		t.Fatalf("StartBreak returned error: %v", err)
	}
	if !end.Equal(start.Add(DefaultBreakDuration)) {
		t.Fatalf("expected break end %v, got %v", start.Add(DefaultBreakDuration), end)
	}
	st := h.state(t)
	if st.enabled || !st.breakMode || st.breakEnd == nil || !st.breakEnd.Equal(end) {
		t.Fatalf("unexpected persisted break state: %+v", st)
	}
	if h.clock.activeTickers() != 0 || h.clock.pendingTimers() != 1 {
		t.Fatalf("expected nudges stopped and one break timer, got tickers=%d timers=%d",
			h.clock.activeTickers(), h.clock.pendingTimers())
	}

	h.clock.Advance(4 * time.Minute)
	status, err := h.m.BreakStatus(ctx)
	if err != nil {
		t.Fatalf("BreakStatus returned error: %v", err)
	}
	if !status.IsOnBreak || status.RemainingMs != (6*time.Minute).Milliseconds() {
		t.Fatalf("unexpected break status: %+v", status)
	}

	nudgesBefore := h.search.calls()
	h.clock.Advance(6 * time.Minute)
	st = h.state(t)
	if !st.enabled || st.breakMode || st.breakEnd != nil {
		t.Fatalf("expected focus resumed after break, got %+v", st)
	}
	if h.clock.activeTickers() != 1 {
		t.Fatalf("expected nudges resumed, got %d tickers", h.clock.activeTickers())
	}
	if h.search.calls() != nudgesBefore+1 {
		t.Fatal("expected an immediate nudge when the break ends")
	}
	want := []string{"focus_started", "break_started", "break_ended"}
	if got := h.notifier.list(); len(got) != len(want) || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("expected notifications %v, got %v", want, got)
	}
}

func TestEndBreakCancelsTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.m.StartBreak(ctx); err != nil {
		t.Fatalf("StartBreak returned error: %v", err)
	}
	if err := h.m.EndBreak(ctx); err != nil {
		t.Fatalf("EndBreak returned error: %v", err)
	}
	if h.clock.pendingTimers() != 0 {
		t.Fatal("expected break timer cancelled")
	}
	status, err := h.m.BreakStatus(ctx)
	if err != nil || status.IsOnBreak {
		t.Fatalf("expected no break, got %+v err=%v", status, err)
	}
}

func TestBreakStatusEndsMissedBreak(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	end, err := h.m.StartBreak(ctx)
	if err != nil {
		t.Fatalf("StartBreak returned error: %v", err)
	}

	h.clock.Set(end.Add(time.Second))
	status, err := h.m.BreakStatus(ctx)
	if err != nil {
		t.Fatalf("BreakStatus returned error: %v", err)
	}
	if status.IsOnBreak || status.EndTime != nil || status.RemainingMs != 0 {
		t.Fatalf("expected ended break, got %+v", status)
	}
	if st := h.state(t); !st.enabled || st.breakMode {
		t.Fatalf("expected focusing after missed break, got %+v", st)
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("pending break is rescheduled", func(t *testing.T) {
		h := newHarness(t)
		end := h.clock.Now().Add(3 * time.Minute)
		if err := h.kv.SetMany(ctx, map[string]any{
			kvstore.KeyIsEnabled:    false,
			kvstore.KeyBreakMode:    true,
			kvstore.KeyBreakEndTime: end,
		}); err != nil {
			t.Fatalf("SetMany returned error: %v", err)
		}
		if err := h.m.Start(ctx); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		if h.clock.pendingTimers() != 1 || h.clock.activeTickers() != 0 {
			t.Fatal("expected only the break timer armed")
		}
		h.clock.Advance(3 * time.Minute)
		if st := h.state(t); !st.enabled || st.breakMode {
			t.Fatalf("expected break ended on schedule, got %+v", st)
		}
	})

	t.Run("expired break is ended", func(t *testing.T) {
		h := newHarness(t)
		if err := h.kv.SetMany(ctx, map[string]any{
			kvstore.KeyBreakMode:    true,
			kvstore.KeyBreakEndTime: h.clock.Now().Add(-time.Minute),
		}); err != nil {
			t.Fatalf("SetMany returned error: %v", err)
		}
		if err := h.m.Start(ctx); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		if st := h.state(t); !st.enabled || st.breakMode {
			t.Fatalf("expected break ended at startup, got %+v", st)
		}
	})

	t.Run("enabled focus resumes nudging", func(t *testing.T) {
		h := newHarness(t)
		testsupport.MustSet(t, h.kv, kvstore.KeyFocusTopic, "golang")
		testsupport.MustSet(t, h.kv, kvstore.KeyIsEnabled, true)
		if err := h.m.Start(ctx); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		if h.clock.activeTickers() != 1 {
			t.Fatal("expected the nudge ticker after restore")
		}
		if h.search.calls() != 0 {
			t.Fatal("restore must not nudge immediately")
		}
		h.clock.Advance(DefaultNudgeInterval)
		if h.search.calls() != 1 {
			t.Fatalf("expected scheduled nudge, got %d", h.search.calls())
		}
	})
}

func TestExternalWritesDriveTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.m.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testsupport.MustSet(t, h.kv, kvstore.KeyIsEnabled, true)
	waitFor(t, "nudge ticker", func() bool { return h.clock.activeTickers() == 1 })

	testsupport.MustSet(t, h.kv, kvstore.KeyIsEnabled, false)
	waitFor(t, "ticker stop", func() bool { return h.clock.activeTickers() == 0 })
}

func TestCloseStopsTimersAndRejectsStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.m.Enable(ctx); err != nil {
		t.Fatalf("Enable returned error: %v", err)
	}
	if _, err := h.m.StartBreak(ctx); err != nil {
		t.Fatalf("StartBreak returned error: %v", err)
	}
	h.m.Close()
	if h.clock.activeTickers() != 0 || h.clock.pendingTimers() != 0 {
		t.Fatal("expected all timers stopped")
	}
	if err := h.m.Start(ctx); err == nil {
		t.Fatal("expected Start after Close to fail")
	}
	if st := h.state(t); !st.breakMode {
		t.Fatal("Close must leave persisted state alone")
	}
}

func TestStatusStates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	check := func(want State) {
		t.Helper()
		status, err := h.m.Status(ctx)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if status.State != want {
			t.Fatalf("expected %s, got %s", want, status.State)
		}
	}
	check(StateOff)
	_ = h.m.Enable(ctx)
	check(StateFocusing)
	_, _ = h.m.StartBreak(ctx)
	check(StateOnBreak)
	_ = h.m.Disable(ctx)
	check(StateOff)
}

func TestLoadSurfacesCorruptState(t *testing.T) {
	h := newHarness(t)
	testsupport.MustSet(t, h.kv, kvstore.KeyBreakMode, "yes")
	_, err := h.m.Status(context.Background())
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
