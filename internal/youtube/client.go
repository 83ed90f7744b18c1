package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cageclock/internal/logging"
	"cageclock/internal/services"
)

const (
	// MaxResultsPerCall is the upstream cap on maxResults.
	MaxResultsPerCall = 50

	defaultRequestsPerSecond = 2
	defaultTimeout           = 10 * time.Second
	maxResponseBody          = 8 << 20
)

// KeySource resolves the secret used for upstream calls.
type KeySource interface {
	ActiveSecret(ctx context.Context) (string, bool, error)
}

// StatsRecorder receives the number of results removed by filtering.
type StatsRecorder interface {
	RecordFiltered(ctx context.Context, n int) error
}

// Searcher is the search surface consumed by the fetch orchestrator and the
// focus machine.
type Searcher interface {
	Search(ctx context.Context, topic string, maxResults int, pageToken string) (*SearchResult, error)
	Verify(ctx context.Context, secret string) (bool, string)
}

// Client talks to the YouTube Data API v3.
type Client struct {
	baseURL    string
	keys       KeySource
	stats      StatsRecorder
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit paces outbound requests to rps with a burst of one.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithStatsRecorder reports filtered counts to recorder.
func WithStatsRecorder(recorder StatsRecorder) Option {
	return func(c *Client) {
		c.stats = recorder
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "youtube")
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, keys KeySource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("youtube base url required")
	}
	if keys == nil {
		return nil, errors.New("youtube key source required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keys:       keys,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		logger:     logging.NewComponentLogger(nil, "youtube"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search runs one page of the curated search pipeline for topic.
func (c *Client) Search(ctx context.Context, topic string, maxResults int, pageToken string) (*SearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Validation("Focus topic is empty. Please set a topic first.")
	}
	secret, ok, err := c.keys.ActiveSecret(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.New(services.KindAuth, http.StatusUnauthorized, services.MessageNoAPIKey)
	}

	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldTopic, topic))

	page, err := c.search(ctx, secret, topic, maxResults, pageToken)
	if err != nil {
		logging.WarnWithContext(logger, "youtube search failed", "youtube_search_failed",
			logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.UserMessage(err)),
			logging.String(logging.FieldImpact, "no videos returned"),
		)
		return nil, err
	}

	hits := make([]searchItem, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID.VideoID != "" {
			hits = append(hits, item)
		}
	}

	videos := c.enrich(ctx, logger, secret, hits)
	kept, removed := Filter(videos)
	if removed > 0 && c.stats != nil {
		if err := c.stats.RecordFiltered(ctx, removed); err != nil {
			logging.WarnWithContext(logger, "failed to record filtered count", "stats_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "daily statistics may undercount"),
			)
		}
	}

	logger.Info("youtube search complete",
		logging.String(logging.FieldEventType, "youtube_search"),
		logging.Int("videos", len(kept)),
		logging.Int("filtered", removed),
		logging.Bool("next_page", page.NextPageToken != ""),
	)

	return &SearchResult{
		Videos:        kept,
		NextPageToken: page.NextPageToken,
		TotalResults:  page.PageInfo.TotalResults,
		FilteredCount: removed,
	}, nil
}

// Verify probes the search endpoint with secret. The message carries the
// upstream reason when the key is rejected.
func (c *Client) Verify(ctx context.Context, secret string) (bool, string) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return false, "API key cannot be empty"
	}
	if _, err := c.search(ctx, secret, "test", 1, ""); err != nil {
		if e, ok := services.As(err); ok {
			return false, e.Message
		}
		return false, err.Error()
	}
	return true, ""
}

func (c *Client) search(ctx context.Context, secret, topic string, maxResults int, pageToken string) (*searchResponse, error) {
	if maxResults <= 0 || maxResults > MaxResultsPerCall {
		maxResults = MaxResultsPerCall
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", topic)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("order", "relevance")
	params.Set("safeSearch", "moderate")
	params.Set("key", secret)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var payload searchResponse
	if err := c.get(ctx, "/search", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// enrich joins search hits with video metadata and channel avatars. The two
// lookups populate disjoint maps and never fail the search.
func (c *Client) enrich(ctx context.Context, logger *slog.Logger, secret string, hits []searchItem) []Video {
	if len(hits) == 0 {
		return []Video{}
	}

	videoIDs := make([]string, 0, len(hits))
	channelIDs := make([]string, 0, len(hits))
	seenChannel := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		videoIDs = append(videoIDs, hit.ID.VideoID)
		if id := hit.Snippet.ChannelID; id != "" {
			if _, ok := seenChannel[id]; !ok {
				seenChannel[id] = struct{}{}
				channelIDs = append(channelIDs, id)
			}
		}
	}

	var (
		details videosResponse
		avatars channelsResponse
		g       errgroup.Group
	)
	g.Go(func() error {
		params := url.Values{}
		params.Set("part", "contentDetails,statistics,snippet")
		params.Set("id", strings.Join(videoIDs, ","))
		params.Set("key", secret)
		if err := c.get(ctx, "/videos", params, &details); err != nil {
			details = videosResponse{}
			logging.WarnWithContext(logger, "video metadata lookup failed", "youtube_metadata_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "durations and view counts default to zero; shorts cannot be filtered"),
			)
		}
		return nil
	})
	if len(channelIDs) > 0 {
		g.Go(func() error {
			params := url.Values{}
			params.Set("part", "snippet")
			params.Set("id", strings.Join(channelIDs, ","))
			params.Set("key", secret)
			if err := c.get(ctx, "/channels", params, &avatars); err != nil {
				avatars = channelsResponse{}
				logging.WarnWithContext(logger, "channel avatar lookup failed", "youtube_avatars_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "channel avatars omitted"),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	type meta struct{ duration, views, category string }
	metaByID := make(map[string]meta, len(details.Items))
	for _, item := range details.Items {
		metaByID[item.ID] = meta{
			duration: item.ContentDetails.Duration,
			views:    item.Statistics.ViewCount,
			category: item.Snippet.CategoryID,
		}
	}
	avatarByChannel := make(map[string]string, len(avatars.Items))
	for _, item := range avatars.Items {
		avatarByChannel[item.ID] = item.Snippet.Thumbnails.best()
	}

	videos := make([]Video, 0, len(hits))
	for _, hit := range hits {
		m, ok := metaByID[hit.ID.VideoID]
		if !ok {
			m = meta{duration: "PT0S", views: "0"}
		}
		if m.duration == "" {
			m.duration = "PT0S"
		}
		if m.views == "" {
			m.views = "0"
		}
		videos = append(videos, Video{
			VideoID:          hit.ID.VideoID,
			Title:            DecodeEntities(hit.Snippet.Title),
			ThumbnailURL:     hit.Snippet.Thumbnails.best(),
			ChannelName:      DecodeEntities(hit.Snippet.ChannelTitle),
			ChannelID:        hit.Snippet.ChannelID,
			ChannelAvatarURL: avatarByChannel[hit.Snippet.ChannelID],
			PublishedAt:      hit.Snippet.PublishedAt,
			Description:      DecodeEntities(hit.Snippet.Description),
			Duration:         m.duration,
			ViewCount:        m.views,
			CategoryID:       m.category,
		})
	}
	return videos
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return services.Wrap(services.KindUpstream, "youtube "+path, "invalid endpoint", err)
	}
	endpoint.RawQuery = params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.KindNetwork, "youtube "+path, services.MessageNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return services.Wrap(services.KindUpstream, "youtube "+path, "build request", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		e := services.New(services.KindNetwork, 0, services.MessageNetwork)
		e.Op = "youtube " + path
		e.Err = fmt.Errorf("execute request (latency=%v): %w", latency, err)
		return e
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		e := services.New(services.KindNetwork, 0, services.MessageNetwork)
		e.Op = "youtube " + path
		e.Err = fmt.Errorf("read response (latency=%v): %w", latency, err)
		return e
	}

	var envelope apiErrorBody
	_ = json.Unmarshal(body, &envelope)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || envelope.Error != nil {
		e := classify(resp.StatusCode, envelope.Error, body)
		e.Op = "youtube " + path
		return e
	}

	if err := json.Unmarshal(body, dst); err != nil {
		e := services.New(services.KindUpstream, http.StatusInternalServerError, "Unexpected error: "+err.Error())
		e.Op = "youtube " + path
		e.Err = fmt.Errorf("decode response (latency=%v): %w", latency, err)
		return e
	}
	return nil
}
