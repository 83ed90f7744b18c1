package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"cageclock/internal/config"
	"cageclock/internal/fetch"
	"cageclock/internal/focus"
	"cageclock/internal/keystore"
	"cageclock/internal/kvstore"
	"cageclock/internal/logging"
	"cageclock/internal/notifications"
	"cageclock/internal/redirect"
	"cageclock/internal/stats"
	"cageclock/internal/videocache"
	"cageclock/internal/youtube"
)

// Daemon owns every long-lived component and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *kvstore.Store

	keys     *keystore.Store
	stats    *stats.Recorder
	youtube  *youtube.Client
	cache    *videocache.Cache
	fetcher  *fetch.Orchestrator
	machine  *focus.Machine
	policy   *redirect.Policy
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	DatabasePath string
	LockFilePath string
	Focus        focus.Status
	FocusError   string
}

// Option customizes component construction.
type Option func(*options)

type options struct {
	notifier   notifications.Service
	focusClock focus.Clock
	httpClient *http.Client
}

// WithNotifier replaces the ntfy-backed notifier.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// WithFocusClock drives focus timers from clock.
func WithFocusClock(clock focus.Clock) Option {
	return func(o *options) { o.focusClock = clock }
}

// WithHTTPClient overrides the YouTube HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *kvstore.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	keys := keystore.New(store, keystore.WithFallback(cfg.YouTube.APIKey))
	recorder := stats.New(store, stats.WithResetInterval(cfg.StatsResetInterval()))

	ytOpts := []youtube.Option{
		youtube.WithRateLimit(cfg.YouTube.RequestsPerSecond),
		youtube.WithStatsRecorder(recorder),
		youtube.WithLogger(logger),
	}
	if o.httpClient != nil {
		ytOpts = append(ytOpts, youtube.WithHTTPClient(o.httpClient))
	} else if timeout := cfg.YouTubeRequestTimeout(); timeout > 0 {
		ytOpts = append(ytOpts, youtube.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	client, err := youtube.New(cfg.YouTube.BaseURL, keys, ytOpts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}

	cache := videocache.New(store,
		videocache.WithDuration(cfg.CacheDuration()),
		videocache.WithVersion(cfg.Cache.Version),
	)
	fetcher := fetch.New(store, cache, client, cfg.YouTube.PageSize, logger)

	focusOpts := []focus.Option{
		focus.WithSessions(recorder),
		focus.WithNotifier(o.notifier),
		focus.WithLogger(logger),
		focus.WithTimings(cfg.NudgeInterval(), cfg.BreakDuration(), cfg.Focus.NudgeResults),
	}
	if o.focusClock != nil {
		focusOpts = append(focusOpts, focus.WithClock(o.focusClock))
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		keys:     keys,
		stats:    recorder,
		youtube:  client,
		cache:    cache,
		fetcher:  fetcher,
		machine:  focus.New(store, client, focusOpts...),
		policy:   redirect.NewPolicy(cfg.Focus.BlockedPaths),
		notifier: o.notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and restores focus timers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cageclock daemon instance is already running")
	}

	if err := d.machine.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start focus machine: %w", err)
	}

	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("cageclock daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop halts focus timers and releases the daemon lock. Persisted focus
// state is kept so the next Start resumes it.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.machine.Close()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("cageclock daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.machine.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = *started
	}
	focusStatus, err := d.machine.Status(ctx)
	if err != nil {
		status.FocusError = err.Error()
	} else {
		status.Focus = focusStatus
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Config returns the daemon configuration.
func (d *Daemon) Config() *config.Config { return d.cfg }

// Logger returns the daemon logger.
func (d *Daemon) Logger() *slog.Logger { return d.logger }

// Keys returns the API key store.
func (d *Daemon) Keys() *keystore.Store { return d.keys }

// Stats returns the daily counter recorder.
func (d *Daemon) Stats() *stats.Recorder { return d.stats }

// Fetcher returns the fetch orchestrator.
func (d *Daemon) Fetcher() *fetch.Orchestrator { return d.fetcher }

// Machine returns the focus machine.
func (d *Daemon) Machine() *focus.Machine { return d.machine }

// Policy returns the blocked-path policy.
func (d *Daemon) Policy() *redirect.Policy { return d.policy }

// Notifier returns the notification service.
func (d *Daemon) Notifier() notifications.Service { return d.notifier }
