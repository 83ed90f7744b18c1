// Package fetch coordinates the curated feed: cache lookups, upstream
// searches and cache write-back. It holds no per-caller state; callers own
// accumulation of continuation pages.
package fetch

import (
	"context"
	"log/slog"
	"strings"

	"cageclock/internal/config"
	"cageclock/internal/kvstore"
	"cageclock/internal/logging"
	"cageclock/internal/services"
	"cageclock/internal/validate"
	"cageclock/internal/videocache"
	"cageclock/internal/youtube"
)

// DefaultPageSize is the number of results requested per page.
const DefaultPageSize = 24

// Page is one page of curated videos.
type Page struct {
	Topic         string          `json:"topic"`
	Videos        []youtube.Video `json:"videos"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	FromCache     bool            `json:"fromCache"`
}

// HasMore reports whether a continuation page exists.
func (p *Page) HasMore() bool {
	return p != nil && p.NextPageToken != ""
}

// Orchestrator serves FETCH, FETCH_MORE, FETCH_FOR_TOPIC, CLEAR_CACHE and
// VERIFY_KEY.
type Orchestrator struct {
	kv       *kvstore.Store
	cache    *videocache.Cache
	source   youtube.Searcher
	pageSize int
	logger   *slog.Logger
}

// New constructs an Orchestrator. pageSize is clamped to the supported range;
// zero selects the default.
func New(kv *kvstore.Store, cache *videocache.Cache, source youtube.Searcher, pageSize int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		kv:       kv,
		cache:    cache,
		source:   source,
		pageSize: ClampPageSize(pageSize),
		logger:   logging.NewComponentLogger(logger, "fetch"),
	}
}

// ClampPageSize bounds n to the supported page sizes.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n < config.MinPageSize:
		return config.MinPageSize
	case n > config.MaxPageSize:
		return config.MaxPageSize
	default:
		return n
	}
}

// PageSize returns the effective page size.
func (o *Orchestrator) PageSize() int {
	return o.pageSize
}

// Topic returns the configured focus topic.
func (o *Orchestrator) Topic(ctx context.Context) (string, error) {
	var topic string
	if _, err := o.kv.GetJSON(ctx, kvstore.KeyFocusTopic, &topic); err != nil {
		return "", err
	}
	return strings.TrimSpace(topic), nil
}

func (o *Orchestrator) requireTopic(ctx context.Context) (string, error) {
	topic, err := o.Topic(ctx)
	if err != nil {
		return "", err
	}
	if topic == "" {
		return "", services.Validation("No focus topic set. Please set a topic first.")
	}
	return topic, nil
}

// Fetch returns the first page for the configured topic, from cache unless
// forceFresh is set or the cache misses.
func (o *Orchestrator) Fetch(ctx context.Context, forceFresh bool) (*Page, error) {
	topic, err := o.requireTopic(ctx)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldTopic, topic))

	if !forceFresh {
		entry, ok, err := o.cache.Get(ctx, topic)
		if err != nil {
			return nil, err
		}
		if ok {
			logger.Debug("serving cached page",
				logging.Int("videos", len(entry.Videos)),
				logging.Time("fetched_at", entry.FetchedAt),
			)
			return &Page{Topic: topic, Videos: entry.Videos, NextPageToken: entry.NextPageToken, FromCache: true}, nil
		}
	}

	result, err := o.source.Search(ctx, topic, o.pageSize, "")
	if err != nil {
		return nil, err
	}
	if err := o.cache.Put(ctx, topic, result.Videos, result.NextPageToken); err != nil {
		logging.WarnWithContext(logger, "failed to cache fetched page", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next fetch will call YouTube again"),
		)
	}
	logger.Info("fetched fresh page",
		logging.String(logging.FieldEventType, "fetch"),
		logging.Int("videos", len(result.Videos)),
		logging.Int("filtered", result.FilteredCount),
		logging.Bool("next_page", result.NextPageToken != ""),
		logging.Bool("forced", forceFresh),
	)
	return &Page{Topic: topic, Videos: result.Videos, NextPageToken: result.NextPageToken}, nil
}

// FetchMore returns the continuation page for pageToken. Continuation pages
// are never cached.
func (o *Orchestrator) FetchMore(ctx context.Context, pageToken string) (*Page, error) {
	pageToken = strings.TrimSpace(pageToken)
	if pageToken == "" {
		return nil, services.Validation("Page token is required to load more videos.")
	}
	topic, err := o.requireTopic(ctx)
	if err != nil {
		return nil, err
	}
	result, err := o.source.Search(ctx, topic, o.pageSize, pageToken)
	if err != nil {
		return nil, err
	}
	return &Page{Topic: topic, Videos: result.Videos, NextPageToken: result.NextPageToken}, nil
}

// FetchForTopic searches an explicit topic without touching the cache.
// maxResults of zero selects the configured page size.
func (o *Orchestrator) FetchForTopic(ctx context.Context, topic string, maxResults int, pageToken string) (*Page, error) {
	if err := validate.Topic(topic).Err(); err != nil {
		return nil, err
	}
	topic = validate.SanitizeTopic(topic)
	if maxResults <= 0 {
		maxResults = o.pageSize
	}
	result, err := o.source.Search(ctx, topic, maxResults, strings.TrimSpace(pageToken))
	if err != nil {
		return nil, err
	}
	return &Page{Topic: topic, Videos: result.Videos, NextPageToken: result.NextPageToken}, nil
}

// ClearCache drops the cached page. It does not refetch.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	if err := o.cache.Clear(ctx); err != nil {
		return err
	}
	logging.WithContext(ctx, o.logger).Info("video cache cleared",
		logging.String(logging.FieldEventType, "cache_cleared"),
	)
	return nil
}

// VerifyKey checks the key's shape and then probes the API with it. Nothing is
// persisted.
func (o *Orchestrator) VerifyKey(ctx context.Context, secret string) (bool, string) {
	if res := validate.APIKey(secret); !res.OK {
		return false, res.Message
	}
	return o.source.Verify(ctx, validate.SanitizeAPIKey(secret))
}
