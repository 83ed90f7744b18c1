// Package keystore manages the collection of YouTube API keys and the pointer
// to the active one.
package keystore

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"cageclock/internal/kvstore"
	"cageclock/internal/services"
	"cageclock/internal/validate"
)

// APIKey is one stored credential. Key is the secret and must never be
// logged or returned unmasked over IPC.
type APIKey struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	IsValid      bool      `json:"isValid"`
	LastVerified time.Time `json:"lastVerified"`
}

// Masked returns the secret with its middle elided.
func (k APIKey) Masked() string {
	return MaskKey(k.Key)
}

// Store reads and writes the key collection in the KV namespace. Every
// mutation is a read-modify-write of the whole collection guarded by mu.
type Store struct {
	kv       *kvstore.Store
	fallback string
	now      func() time.Time

	mu      sync.Mutex
	idMu    sync.Mutex
	entropy io.Reader
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for LastVerified stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFallback sets a secret used when neither the collection nor the legacy
// key holds anything. The daemon passes the configured youtube.api_key.
func WithFallback(secret string) Option {
	return func(s *Store) {
		s.fallback = strings.TrimSpace(secret)
	}
}

// New constructs a Store over kv.
func New(kv *kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

type snapshot struct {
	keys     []APIKey
	activeID string
}

func (s *Store) load(ctx context.Context) (snapshot, error) {
	var snap snapshot
	if _, err := s.kv.GetJSON(ctx, kvstore.KeyAPIKeys, &snap.keys); err != nil {
		return snapshot{}, err
	}
	if _, err := s.kv.GetJSON(ctx, kvstore.KeyActiveAPIKeyID, &snap.activeID); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Store) save(ctx context.Context, snap snapshot) error {
	keys := snap.keys
	if keys == nil {
		keys = []APIKey{}
	}
	values := map[string]any{kvstore.KeyAPIKeys: keys}
	if snap.activeID == "" {
		values[kvstore.KeyActiveAPIKeyID] = nil
	} else {
		values[kvstore.KeyActiveAPIKeyID] = snap.activeID
	}
	return s.kv.SetMany(ctx, values)
}

func (snap snapshot) index(id string) int {
	for i, k := range snap.keys {
		if k.ID == id {
			return i
		}
	}
	return -1
}

func (snap snapshot) firstValid() string {
	for _, k := range snap.keys {
		if k.IsValid {
			return k.ID
		}
	}
	return ""
}

// List returns every key in insertion order plus the active id.
func (s *Store) List(ctx context.Context) ([]APIKey, string, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, "", err
	}
	return snap.keys, snap.activeID, nil
}

// Add stores a new key and makes it active. Empty names default to
// "API Key N".
func (s *Store) Add(ctx context.Context, secret, name string) (APIKey, error) {
	secret = validate.SanitizeAPIKey(secret)
	if secret == "" {
		return APIKey{}, services.Validation("API key cannot be empty")
	}
	name = validate.SanitizeKeyName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return APIKey{}, err
	}
	if name == "" {
		name = fmt.Sprintf("API Key %d", len(snap.keys)+1)
	}
	key := APIKey{
		ID:           s.newID(),
		Name:         name,
		Key:          secret,
		IsValid:      true,
		LastVerified: s.now().UTC(),
	}
	snap.keys = append(snap.keys, key)
	snap.activeID = key.ID
	if err := s.save(ctx, snap); err != nil {
		return APIKey{}, err
	}
	return key, nil
}

// SetActive points the active pointer at id. Unknown ids are ignored.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	if snap.index(id) < 0 || snap.activeID == id {
		return nil
	}
	snap.activeID = id
	return s.save(ctx, snap)
}

// Delete removes id. When it was active, the first remaining valid key takes
// over, or the pointer is cleared.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := snap.index(id)
	if idx < 0 {
		return nil
	}
	snap.keys = append(snap.keys[:idx], snap.keys[idx+1:]...)
	if snap.activeID == id {
		snap.activeID = snap.firstValid()
	}
	return s.save(ctx, snap)
}

// MarkValidity records the outcome of a verification probe.
func (s *Store) MarkValidity(ctx context.Context, id string, valid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := snap.index(id)
	if idx < 0 {
		return nil
	}
	snap.keys[idx].IsValid = valid
	snap.keys[idx].LastVerified = s.now().UTC()
	return s.save(ctx, snap)
}

// Get returns the key with id.
func (s *Store) Get(ctx context.Context, id string) (APIKey, bool, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return APIKey{}, false, err
	}
	idx := snap.index(id)
	if idx < 0 {
		return APIKey{}, false, nil
	}
	return snap.keys[idx], true, nil
}

// ActiveSecret resolves the secret to send upstream. An explicitly active key
// wins; if it is marked invalid there is no usable key. Without an explicit
// pointer the first valid key is used. The legacy single key and the
// configured fallback are consulted only while the collection is empty.
func (s *Store) ActiveSecret(ctx context.Context) (string, bool, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return "", false, err
	}

	if len(snap.keys) > 0 {
		if idx := snap.index(snap.activeID); idx >= 0 {
			if !snap.keys[idx].IsValid {
				return "", false, nil
			}
			return snap.keys[idx].Key, true, nil
		}
		if id := snap.firstValid(); id != "" {
			return snap.keys[snap.index(id)].Key, true, nil
		}
		return "", false, nil
	}

	var legacy string
	if _, err := s.kv.GetJSON(ctx, kvstore.KeyLegacyAPIKey, &legacy); err != nil {
		return "", false, err
	}
	if legacy = strings.TrimSpace(legacy); legacy != "" {
		return legacy, true, nil
	}
	if s.fallback != "" {
		return s.fallback, true, nil
	}
	return "", false, nil
}

// HasKey reports whether a usable secret is available.
func (s *Store) HasKey(ctx context.Context) (bool, error) {
	_, ok, err := s.ActiveSecret(ctx)
	return ok, err
}

// SetLegacy stores the single-key value used before the collection existed.
// An empty secret clears it.
func (s *Store) SetLegacy(ctx context.Context, secret string) error {
	secret = validate.SanitizeAPIKey(secret)
	if secret == "" {
		return s.kv.Delete(ctx, kvstore.KeyLegacyAPIKey)
	}
	return s.kv.Set(ctx, kvstore.KeyLegacyAPIKey, secret)
}
