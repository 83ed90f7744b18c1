package focus

import (
	"context"
	"time"

	"cageclock/internal/kvstore"
	"cageclock/internal/logging"
	"cageclock/internal/notifications"
)

// Enable turns focus mode on, ending any break. The nudge ticker is
// restarted and one nudge fires immediately; repeated calls never leave more
// than one ticker running.
func (m *Machine) Enable(ctx context.Context) error {
	m.mu.Lock()
	prev, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.kv.SetMany(ctx, map[string]any{
		kvstore.KeyIsEnabled:    true,
		kvstore.KeyBreakMode:    false,
		kvstore.KeyBreakEndTime: nil,
	}); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cancelBreakLocked()
	m.startNudgesLocked(true)
	m.mu.Unlock()

	m.startSession(ctx)
	if !prev.enabled {
		m.logger.Info("focus enabled",
			logging.String(logging.FieldEventType, "focus_enabled"),
			logging.String(logging.FieldTopic, prev.topic),
		)
		m.notify("focus_started", func(n notifications.Service) error {
			return n.NotifyFocusStarted(ctx, prev.topic)
		})
	}
	return nil
}

// Disable turns focus mode off and stops all timers.
func (m *Machine) Disable(ctx context.Context) error {
	m.mu.Lock()
	prev, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.kv.SetMany(ctx, map[string]any{
		kvstore.KeyIsEnabled:    false,
		kvstore.KeyBreakMode:    false,
		kvstore.KeyBreakEndTime: nil,
	}); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cancelBreakLocked()
	m.stopNudgesLocked()
	m.mu.Unlock()

	m.endSession(ctx)
	if prev.enabled || prev.breakMode {
		m.logger.Info("focus disabled", logging.String(logging.FieldEventType, "focus_disabled"))
	}
	return nil
}

// SetEnabled dispatches to Enable or Disable.
func (m *Machine) SetEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return m.Enable(ctx)
	}
	return m.Disable(ctx)
}

// StartBreak pauses focus for the break length and returns when the break
// ends. Starting a break while one is running restarts it.
func (m *Machine) StartBreak(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	end := m.clock.Now().Add(m.breakLength).UTC()
	if err := m.kv.SetMany(ctx, map[string]any{
		kvstore.KeyIsEnabled:    false,
		kvstore.KeyBreakMode:    true,
		kvstore.KeyBreakEndTime: end,
	}); err != nil {
		m.mu.Unlock()
		return time.Time{}, err
	}
	m.stopNudgesLocked()
	m.scheduleBreakLocked(end)
	m.mu.Unlock()

	m.endSession(ctx)
	m.logger.Info("break started",
		logging.String(logging.FieldEventType, "break_started"),
		logging.Time("break_end", end),
		logging.Duration("break_length", m.breakLength),
	)
	m.notify("break_started", func(n notifications.Service) error {
		return n.NotifyBreakStarted(ctx, end)
	})
	return end, nil
}

// EndBreak returns to focusing: the break timer is cancelled and nudges
// resume with an immediate nudge.
func (m *Machine) EndBreak(ctx context.Context) error {
	m.mu.Lock()
	prev, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.kv.SetMany(ctx, map[string]any{
		kvstore.KeyIsEnabled:    true,
		kvstore.KeyBreakMode:    false,
		kvstore.KeyBreakEndTime: nil,
	}); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cancelBreakLocked()
	m.startNudgesLocked(true)
	m.mu.Unlock()

	m.startSession(ctx)
	if prev.breakMode {
		m.logger.Info("break ended",
			logging.String(logging.FieldEventType, "break_ended"),
			logging.String(logging.FieldTopic, prev.topic),
		)
		m.notify("break_ended", func(n notifications.Service) error {
			return n.NotifyBreakEnded(ctx, prev.topic)
		})
	}
	return nil
}

// BreakStatus reports the running break. A break whose end time has passed
// without the timer firing is ended here.
func (m *Machine) BreakStatus(ctx context.Context) (BreakStatus, error) {
	st, err := m.load(ctx)
	if err != nil {
		return BreakStatus{}, err
	}
	if !st.breakMode {
		return BreakStatus{}, nil
	}
	now := m.clock.Now()
	if st.breakEnd == nil || !now.Before(*st.breakEnd) {
		if err := m.EndBreak(ctx); err != nil {
			return BreakStatus{}, err
		}
		return BreakStatus{}, nil
	}
	return BreakStatus{
		IsOnBreak:   true,
		EndTime:     st.breakEnd,
		RemainingMs: st.breakEnd.Sub(now).Milliseconds(),
	}, nil
}

// Restore re-arms timers from persisted state after a restart.
func (m *Machine) Restore(ctx context.Context) error {
	st, err := m.load(ctx)
	if err != nil {
		return err
	}
	switch {
	case st.breakMode && (st.breakEnd == nil || !m.clock.Now().Before(*st.breakEnd)):
		m.logger.Info("ending break that expired while stopped",
			logging.String(logging.FieldEventType, "break_expired"),
		)
		return m.EndBreak(ctx)
	case st.breakMode:
		m.mu.Lock()
		m.stopNudgesLocked()
		m.scheduleBreakLocked(*st.breakEnd)
		m.mu.Unlock()
		m.logger.Info("break resumed",
			logging.String(logging.FieldEventType, "break_resumed"),
			logging.Duration("remaining", st.breakEnd.Sub(m.clock.Now())),
		)
	case st.enabled:
		m.mu.Lock()
		m.startNudgesLocked(false)
		m.mu.Unlock()
		m.startSession(ctx)
		m.logger.Info("focus resumed",
			logging.String(logging.FieldEventType, "focus_resumed"),
			logging.String(logging.FieldTopic, st.topic),
		)
	default:
		m.mu.Lock()
		m.stopNudgesLocked()
		m.mu.Unlock()
	}
	return nil
}

// scheduleBreakLocked arms the one-shot break timer, replacing any earlier
// one. Callers hold m.mu.
func (m *Machine) scheduleBreakLocked(end time.Time) {
	m.cancelBreakLocked()
	if m.closed {
		return
	}
	m.breakSeq++
	seq := m.breakSeq
	delay := end.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	m.breakTimer = m.clock.AfterFunc(delay, func() { m.onBreakTimer(seq) })
}

func (m *Machine) cancelBreakLocked() {
	if m.breakTimer != nil {
		m.breakTimer.Stop()
		m.breakTimer = nil
	}
	m.breakSeq++
}

func (m *Machine) onBreakTimer(seq uint64) {
	m.mu.Lock()
	if m.closed || seq != m.breakSeq {
		m.mu.Unlock()
		return
	}
	m.breakTimer = nil
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	if err := m.EndBreak(m.bg); err != nil {
		logging.ErrorWithContext(m.logger, "failed to end break", "break_end_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `cageclock break end` to resume focus"),
			logging.String(logging.FieldImpact, "focus stays paused"),
		)
	}
}
