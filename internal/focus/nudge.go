package focus

import (
	"context"
	"strings"

	"cageclock/internal/kvstore"
	"cageclock/internal/logging"
	"cageclock/internal/services"
)

// startNudgesLocked (re)creates the single nudge ticker. Callers hold m.mu.
func (m *Machine) startNudgesLocked(immediate bool) {
	m.stopNudgesLocked()
	if m.closed {
		return
	}
	// A tick that was already waiting on m.mu when its ticker was stopped or
	// replaced must not nudge.
	var t Timer
	t = m.clock.Every(m.nudgeInterval, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ticker != t {
			return
		}
		m.spawnNudgeLocked()
	})
	m.ticker = t
	if immediate {
		m.spawnNudgeLocked()
	}
}

func (m *Machine) stopNudgesLocked() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
}

func (m *Machine) spawnNudgeLocked() {
	if m.closed || m.search == nil {
		return
	}
	if m.syncNudges {
		m.nudge(m.bg)
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.nudge(m.bg)
	}()
}

// nudge runs a small search for the focus topic and discards the results.
// Without a topic it does nothing.
func (m *Machine) nudge(ctx context.Context) {
	var topic string
	if _, err := m.kv.GetJSON(ctx, kvstore.KeyFocusTopic, &topic); err != nil {
		m.recordNudge(err)
		return
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	result, err := m.search.Search(ctx, topic, m.nudgeResults, "")
	m.recordNudge(err)
	if err != nil {
		logging.WarnWithContext(m.logger, "background nudge failed", "nudge_failed",
			logging.String(logging.FieldTopic, topic),
			logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.UserMessage(err)),
			logging.String(logging.FieldImpact, "next nudge retries on schedule"),
		)
		return
	}
	m.logger.Debug("background nudge complete",
		logging.String(logging.FieldEventType, "nudge"),
		logging.String(logging.FieldTopic, topic),
		logging.Int("videos", len(result.Videos)),
	)
}

func (m *Machine) recordNudge(err error) {
	m.nudgeMu.Lock()
	defer m.nudgeMu.Unlock()
	m.lastNudge = m.clock.Now()
	m.lastNudgeErr = ""
	if err != nil {
		m.lastNudgeErr = services.UserMessage(err)
	}
}
