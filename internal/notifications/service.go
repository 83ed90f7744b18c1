package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cageclock/internal/config"
)

const userAgent = "CageClock/0.1.0"

// Service defines the notification surface used by the focus machine and the
// daemon.
type Service interface {
	NotifyFocusStarted(ctx context.Context, topic string) error
	NotifyFocusStopped(ctx context.Context, focused time.Duration) error
	NotifyBreakStarted(ctx context.Context, until time.Time) error
	NotifyBreakEnded(ctx context.Context, topic string) error
	NotifyKeyRejected(ctx context.Context, keyName, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		breaks:   cfg.Notifications.Breaks,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	breaks   bool
}

func (n *ntfyService) NotifyFocusStarted(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	message := "🎯 Focus mode on"
	if topic != "" {
		message = fmt.Sprintf("🎯 Focus mode on: %s", topic)
	}
	return n.send(ctx, payload{
		title:   "CageClock - Focus Started",
		message: message,
		tags:    []string{"cageclock", "focus", "started"},
	})
}

func (n *ntfyService) NotifyFocusStopped(ctx context.Context, focused time.Duration) error {
	focused = focused.Round(time.Minute)
	if focused < 0 {
		focused = 0
	}
	return n.send(ctx, payload{
		title:   "CageClock - Focus Stopped",
		message: fmt.Sprintf("Focus mode off. Focused today: %s", formatMinutes(focused)),
		tags:    []string{"cageclock", "focus", "stopped"},
	})
}

func (n *ntfyService) NotifyBreakStarted(ctx context.Context, until time.Time) error {
	if !n.breaks {
		return nil
	}
	return n.send(ctx, payload{
		title:    "CageClock - Break",
		message:  fmt.Sprintf("☕ Break until %s", until.Local().Format("15:04")),
		tags:     []string{"cageclock", "break", "started"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyBreakEnded(ctx context.Context, topic string) error {
	if !n.breaks {
		return nil
	}
	message := "⏰ Break over. Back to focus"
	if topic = strings.TrimSpace(topic); topic != "" {
		message = fmt.Sprintf("⏰ Break over. Back to %s", topic)
	}
	return n.send(ctx, payload{
		title:    "CageClock - Break Over",
		message:  message,
		tags:     []string{"cageclock", "break", "ended"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyKeyRejected(ctx context.Context, keyName, reason string) error {
	var builder strings.Builder
	builder.WriteString("❌ API key rejected")
	if keyName = strings.TrimSpace(keyName); keyName != "" {
		builder.WriteString(": ")
		builder.WriteString(keyName)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString("\n")
		builder.WriteString(reason)
	}
	return n.send(ctx, payload{
		title:    "CageClock - API Key",
		message:  builder.String(),
		tags:     []string{"cageclock", "key", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "CageClock - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cageclock", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatMinutes(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

type noopService struct{}

func (noopService) NotifyFocusStarted(context.Context, string) error        { return nil }
func (noopService) NotifyFocusStopped(context.Context, time.Duration) error { return nil }
func (noopService) NotifyBreakStarted(context.Context, time.Time) error     { return nil }
func (noopService) NotifyBreakEnded(context.Context, string) error          { return nil }
func (noopService) NotifyKeyRejected(context.Context, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
