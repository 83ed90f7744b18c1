// Package videocache stores the single most recent first page of curated
// videos. An entry is served only for the topic it was fetched for, only at
// the current version, and only while younger than the cache duration.
package videocache

import (
	"context"
	"encoding/json"
	"time"

	"cageclock/internal/kvstore"
	"cageclock/internal/services"
	"cageclock/internal/youtube"
)

const (
	// CurrentVersion is bumped whenever the Video shape changes so entries
	// written by older builds are never served as complete.
	CurrentVersion = 2
	// DefaultDuration is how long an entry stays fresh.
	DefaultDuration = 30 * time.Minute
)

// Entry is one cached page.
type Entry struct {
	Topic         string
	Videos        []youtube.Video
	NextPageToken string
	FetchedAt     time.Time
	Version       int
}

// Cache reads and writes the entry's keys in the KV store.
type Cache struct {
	kv       *kvstore.Store
	duration time.Duration
	version  int
	now      func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDuration overrides the freshness window.
func WithDuration(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithVersion overrides the expected entry version.
func WithVersion(v int) Option {
	return func(c *Cache) {
		if v > 0 {
			c.version = v
		}
	}
}

// New constructs a Cache.
func New(kv *kvstore.Store, opts ...Option) *Cache {
	c := &Cache{kv: kv, duration: DefaultDuration, version: CurrentVersion, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var entryKeys = []string{
	kvstore.KeyCachedVideos,
	kvstore.KeyCachedVideosTopic,
	kvstore.KeyCachedVideosTime,
	kvstore.KeyCacheVersion,
	kvstore.KeyCachedNextPageToken,
}

// Get returns the entry when it is a hit for topic. Any failed condition is a
// miss; only storage failures are errors. All keys come from one snapshot so
// a concurrent Put never yields a mixed entry.
func (c *Cache) Get(ctx context.Context, topic string) (*Entry, bool, error) {
	values, err := c.kv.GetMany(ctx, entryKeys...)
	if err != nil {
		return nil, false, err
	}
	var entry Entry
	if ok, err := decode(values, kvstore.KeyCachedVideosTopic, &entry.Topic); err != nil || !ok || entry.Topic != topic {
		return nil, false, err
	}
	if ok, err := decode(values, kvstore.KeyCacheVersion, &entry.Version); err != nil || !ok || entry.Version != c.version {
		return nil, false, err
	}
	if ok, err := decode(values, kvstore.KeyCachedVideosTime, &entry.FetchedAt); err != nil || !ok {
		return nil, false, err
	}
	if age := c.now().Sub(entry.FetchedAt); age < 0 || age >= c.duration {
		return nil, false, nil
	}
	if ok, err := decode(values, kvstore.KeyCachedVideos, &entry.Videos); err != nil || !ok {
		return nil, false, err
	}
	if _, err := decode(values, kvstore.KeyCachedNextPageToken, &entry.NextPageToken); err != nil {
		return nil, false, err
	}
	if entry.Videos == nil {
		entry.Videos = []youtube.Video{}
	}
	return &entry, true, nil
}

func decode(values map[string]json.RawMessage, key string, dst any) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, services.Storage("kv decode "+key, err)
	}
	return true, nil
}

// Put replaces the entry wholesale.
func (c *Cache) Put(ctx context.Context, topic string, videos []youtube.Video, nextPageToken string) error {
	if videos == nil {
		videos = []youtube.Video{}
	}
	values := map[string]any{
		kvstore.KeyCachedVideos:      videos,
		kvstore.KeyCachedVideosTopic: topic,
		kvstore.KeyCachedVideosTime:  c.now().UTC(),
		kvstore.KeyCacheVersion:      c.version,
	}
	if nextPageToken == "" {
		values[kvstore.KeyCachedNextPageToken] = nil
	} else {
		values[kvstore.KeyCachedNextPageToken] = nextPageToken
	}
	return c.kv.SetMany(ctx, values)
}

// Clear removes the entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, entryKeys...)
}
