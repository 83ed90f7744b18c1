package focus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cageclock/internal/kvstore"
	"cageclock/internal/logging"
	"cageclock/internal/notifications"
	"cageclock/internal/services"
	"cageclock/internal/youtube"
)

const (
	DefaultNudgeInterval = 30 * time.Minute
	DefaultBreakDuration = 10 * time.Minute
	DefaultNudgeResults  = 5
)

// State is the machine's externally visible mode.
type State string

const (
	StateOff      State = "off"
	StateFocusing State = "focusing"
	StateOnBreak  State = "on_break"
)

// Searcher runs the background nudge search.
type Searcher interface {
	Search(ctx context.Context, topic string, maxResults int, pageToken string) (*youtube.SearchResult, error)
}

// Sessions accounts focused time.
type Sessions interface {
	StartSession(ctx context.Context) error
	EndSession(ctx context.Context) error
}

// Status is a snapshot of persisted state plus timer bookkeeping.
type Status struct {
	State        State      `json:"state"`
	Enabled      bool       `json:"isEnabled"`
	Topic        string     `json:"focusTopic"`
	BreakMode    bool       `json:"breakMode"`
	BreakEndTime *time.Time `json:"breakEndTime,omitempty"`
	Nudging      bool       `json:"nudging"`
	LastNudge    time.Time  `json:"lastNudge,omitempty"`
	LastNudgeErr string     `json:"lastNudgeError,omitempty"`
}

// BreakStatus answers GET_BREAK_STATUS.
type BreakStatus struct {
	IsOnBreak   bool       `json:"isOnBreak"`
	EndTime     *time.Time `json:"endTime"`
	RemainingMs int64      `json:"remainingMs"`
}

// Machine owns the nudge ticker and the break timer.
type Machine struct {
	kv       *kvstore.Store
	search   Searcher
	sessions Sessions
	notifier notifications.Service
	clock    Clock
	logger   *slog.Logger

	nudgeInterval time.Duration
	breakLength   time.Duration
	nudgeResults  int

	mu         sync.Mutex
	ticker     Timer
	breakTimer Timer
	breakSeq   uint64
	sub        *kvstore.Subscription
	started    bool
	closed     bool
	bg         context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// syncNudges runs nudges on the caller's goroutine.
	syncNudges bool

	nudgeMu      sync.Mutex
	lastNudge    time.Time
	lastNudgeErr string
}

// Option customizes a Machine.
type Option func(*Machine)

// WithClock overrides the time source and timer factory.
func WithClock(clock Clock) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithSessions wires focused-time accounting.
func WithSessions(sessions Sessions) Option {
	return func(m *Machine) { m.sessions = sessions }
}

// WithNotifier wires break and focus notifications.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Machine) { m.notifier = notifier }
}

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logging.NewComponentLogger(logger, "focus") }
}

// WithTimings overrides the nudge period, break length and nudge result count.
// Non-positive values keep the defaults.
func WithTimings(nudgeInterval, breakLength time.Duration, nudgeResults int) Option {
	return func(m *Machine) {
		if nudgeInterval > 0 {
			m.nudgeInterval = nudgeInterval
		}
		if breakLength > 0 {
			m.breakLength = breakLength
		}
		if nudgeResults > 0 {
			m.nudgeResults = nudgeResults
		}
	}
}

// New constructs a Machine. Timers are not armed until Start or a transition.
func New(kv *kvstore.Store, search Searcher, opts ...Option) *Machine {
	bg, cancel := context.WithCancel(context.Background())
	m := &Machine{
		kv:            kv,
		search:        search,
		clock:         systemClock{},
		logger:        logging.NewComponentLogger(nil, "focus"),
		nudgeInterval: DefaultNudgeInterval,
		breakLength:   DefaultBreakDuration,
		nudgeResults:  DefaultNudgeResults,
		bg:            bg,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to isEnabled changes and restores timers from persisted
// state.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("focus machine closed")
	}
	if m.started {
		m.mu.Unlock()
		return errors.New("focus machine already running")
	}
	m.started = true
	m.sub = m.kv.Subscribe(kvstore.KeyIsEnabled)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.watch(m.sub)
	return m.Restore(ctx)
}

// Close stops every timer and waits for in-flight callbacks. Persisted state
// is left untouched so Restore can resume it.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopNudgesLocked()
	m.cancelBreakLocked()
	if m.sub != nil {
		m.sub.Close()
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Status reports the current mode.
func (m *Machine) Status(ctx context.Context) (Status, error) {
	st, err := m.load(ctx)
	if err != nil {
		return Status{}, err
	}
	m.mu.Lock()
	nudging := m.ticker != nil
	m.mu.Unlock()
	m.nudgeMu.Lock()
	lastNudge, lastErr := m.lastNudge, m.lastNudgeErr
	m.nudgeMu.Unlock()

	return Status{
		State:        st.state(),
		Enabled:      st.enabled,
		Topic:        st.topic,
		BreakMode:    st.breakMode,
		BreakEndTime: st.breakEnd,
		Nudging:      nudging,
		LastNudge:    lastNudge,
		LastNudgeErr: lastErr,
	}, nil
}

func (m *Machine) watch(sub *kvstore.Subscription) {
	defer m.wg.Done()
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			m.reconcile(m.bg)
		case <-m.bg.Done():
			return
		}
	}
}

// reconcile aligns the nudge ticker with the persisted isEnabled flag after
// a write from another client.
func (m *Machine) reconcile(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	st, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		logging.WarnWithContext(m.logger, "failed to read focus state", "focus_state_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "nudge schedule may be stale until the next change"),
		)
		return
	}
	switch {
	case st.enabled && m.ticker == nil:
		m.startNudgesLocked(true)
		m.mu.Unlock()
		m.logger.Info("focus enabled", logging.String(logging.FieldEventType, "focus_enabled"), logging.String("source", "store"))
		m.startSession(ctx)
	case !st.enabled && m.ticker != nil:
		m.stopNudgesLocked()
		m.mu.Unlock()
		m.logger.Info("focus disabled", logging.String(logging.FieldEventType, "focus_disabled"), logging.String("source", "store"))
		m.endSession(ctx)
	default:
		m.mu.Unlock()
	}
}

type persisted struct {
	enabled   bool
	topic     string
	breakMode bool
	breakEnd  *time.Time
}

func (p persisted) state() State {
	switch {
	case p.breakMode:
		return StateOnBreak
	case p.enabled:
		return StateFocusing
	default:
		return StateOff
	}
}

func (m *Machine) load(ctx context.Context) (persisted, error) {
	values, err := m.kv.GetMany(ctx,
		kvstore.KeyIsEnabled,
		kvstore.KeyFocusTopic,
		kvstore.KeyBreakMode,
		kvstore.KeyBreakEndTime,
	)
	if err != nil {
		return persisted{}, err
	}
	var st persisted
	var end time.Time
	fields := []struct {
		key string
		dst any
	}{
		{kvstore.KeyIsEnabled, &st.enabled},
		{kvstore.KeyFocusTopic, &st.topic},
		{kvstore.KeyBreakMode, &st.breakMode},
		{kvstore.KeyBreakEndTime, &end},
	}
	for _, field := range fields {
		raw, ok := values[field.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, field.dst); err != nil {
			return persisted{}, services.Storage("focus decode "+field.key, err)
		}
	}
	if _, ok := values[kvstore.KeyBreakEndTime]; ok && !end.IsZero() {
		st.breakEnd = &end
	}
	return st, nil
}

func (m *Machine) startSession(ctx context.Context) {
	if m.sessions == nil {
		return
	}
	if err := m.sessions.StartSession(ctx); err != nil {
		logging.WarnWithContext(m.logger, "failed to start focus session", "stats_session_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "focused time may undercount"),
		)
	}
}

func (m *Machine) endSession(ctx context.Context) {
	if m.sessions == nil {
		return
	}
	if err := m.sessions.EndSession(ctx); err != nil {
		logging.WarnWithContext(m.logger, "failed to end focus session", "stats_session_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "focused time may undercount"),
		)
	}
}

func (m *Machine) notify(event string, send func(notifications.Service) error) {
	if m.notifier == nil {
		return
	}
	if err := send(m.notifier); err != nil {
		logging.WarnWithContext(m.logger, "notification failed", "notification_failed",
			logging.String("notification", event),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "notification not delivered"),
		)
	}
}
