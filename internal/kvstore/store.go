package kvstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"cageclock/internal/config"
	"cageclock/internal/services"
)

// Store is the flat key-value namespace backed by SQLite. Values are stored
// JSON-encoded, one row per key.
type Store struct {
	db   *sql.DB
	path string

	// writeMu orders read-old/write-new/publish so subscribers observe
	// changes in commit order.
	writeMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]*Subscription
	nextSub int
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the state database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, subs: make(map[int]*Subscription)}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and ends every subscription.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.subMu.Lock()
	subs := s.subs
	s.subs = make(map[int]*Subscription)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
	return s.db.Close()
}

// Get returns the raw JSON value stored under key.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	ctx = ensureContext(ctx)
	var value string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, services.Storage("kv get "+key, err)
	}
	return json.RawMessage(value), true, nil
}

// GetJSON decodes the value under key into dst. It reports false when the key
// is absent, leaving dst untouched.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, services.Storage("kv decode "+key, err)
	}
	return true, nil
}

// GetMany returns the present values among keys. The keys are read in one
// statement, so the result is a consistent snapshot against SetMany.
func (s *Store) GetMany(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	ctx = ensureContext(ctx)
	query := "SELECT key, value FROM kv WHERE key IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	err := retryOnBusy(ctx, func() error {
		clear(out)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return err
			}
			out[key] = json.RawMessage(value)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Storage("kv get many", err)
	}
	return out, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	return s.SetMany(ctx, map[string]any{key: value})
}

// SetMany writes all values in a single transaction. A nil value deletes the
// key.
func (s *Store) SetMany(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	encoded := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		if value == nil {
			encoded[key] = nil
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return services.Storage("kv encode "+key, err)
		}
		encoded[key] = data
	}
	return s.apply(ensureContext(ctx), encoded)
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	encoded := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		encoded[key] = nil
	}
	return s.apply(ensureContext(ctx), encoded)
}

func (s *Store) apply(ctx context.Context, values map[string]json.RawMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var changes []Change
	err := retryOnBusy(ctx, func() error {
		var txErr error
		changes, txErr = s.applyTx(ctx, values)
		return txErr
	})
	if err != nil {
		return services.Storage("kv write", err)
	}
	for _, change := range changes {
		s.publish(change)
	}
	return nil
}

func (s *Store) applyTx(ctx context.Context, values map[string]json.RawMessage) ([]Change, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	changes := make([]Change, 0, len(values))
	for key, next := range values {
		var prev json.RawMessage
		var stored string
		switch err := tx.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&stored); {
		case err == nil:
			prev = json.RawMessage(stored)
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, err
		}

		if next == nil {
			if prev == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
				return nil, err
			}
		} else {
			if prev != nil && bytes.Equal(prev, next) {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, string(next), now,
			); err != nil {
				return nil, err
			}
		}
		changes = append(changes, Change{Key: key, Old: prev, New: next})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}
