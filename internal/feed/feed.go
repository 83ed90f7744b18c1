// Package feed accumulates curated pages on the caller side. It owns the
// in-flight flag, the hasMore flag and a request generation counter: every
// Load, Reset and topic change starts a new generation, and a response that
// completes under an older generation is discarded instead of applied.
package feed

import (
	"context"
	"errors"
	"sync"

	"cageclock/internal/youtube"
)

var (
	// ErrInFlight is returned when a request is already outstanding.
	ErrInFlight = errors.New("feed: request already in flight")
	// ErrStale is returned when a response arrived after being superseded.
	ErrStale = errors.New("feed: response superseded")
	// ErrNoMore is returned by More when the last page has been loaded.
	ErrNoMore = errors.New("feed: no more pages")
)

// Page is what a Loader returns for one request. Topic is the topic the page
// was fetched for; empty means the loader does not report it.
type Page struct {
	Topic         string
	Videos        []youtube.Video
	NextPageToken string
}

// Loader performs the actual first-page and continuation fetches.
type Loader interface {
	First(ctx context.Context, forceFresh bool) (Page, error)
	More(ctx context.Context, pageToken string) (Page, error)
}

// Snapshot is a copy of the feed state.
type Snapshot struct {
	Topic      string
	Videos     []youtube.Video
	HasMore    bool
	Loading    bool
	Generation uint64
}

// Feed is safe for concurrent use.
type Feed struct {
	loader Loader

	mu         sync.Mutex
	topic      string
	videos     []youtube.Video
	nextToken  string
	generation uint64
	loading    bool
}

// New constructs an empty Feed.
func New(loader Loader) *Feed {
	return &Feed{loader: loader}
}

// Load replaces the accumulated list with the first page.
func (f *Feed) Load(ctx context.Context, forceFresh bool) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.generation++
	gen := f.begin()
	f.mu.Unlock()

	page, err := f.loader.First(ctx, forceFresh)
	return f.finish(gen, page, err, false)
}

// More appends the next page.
func (f *Feed) More(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return ErrInFlight
	}
	if f.nextToken == "" {
		f.mu.Unlock()
		return ErrNoMore
	}
	token := f.nextToken
	gen := f.begin()
	f.mu.Unlock()

	page, err := f.loader.More(ctx, token)
	return f.finish(gen, page, err, true)
}

// Reset discards accumulated results and supersedes any outstanding request.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

// SetTopic records the topic the feed is showing. A change resets the feed.
// An empty topic lets the next Load adopt whatever topic its page reports.
func (f *Feed) SetTopic(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.topic {
		return
	}
	f.topic = topic
	f.resetLocked()
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	videos := make([]youtube.Video, len(f.videos))
	copy(videos, f.videos)
	return Snapshot{
		Topic:      f.topic,
		Videos:     videos,
		HasMore:    f.nextToken != "",
		Loading:    f.loading,
		Generation: f.generation,
	}
}

func (f *Feed) resetLocked() {
	f.generation++
	f.videos = nil
	f.nextToken = ""
	f.loading = false
}

// begin marks a request as outstanding under the current generation. Callers
// hold mu.
func (f *Feed) begin() uint64 {
	f.loading = true
	return f.generation
}

func (f *Feed) finish(gen uint64, page Page, err error, appendPage bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return ErrStale
	}
	f.loading = false
	if err != nil {
		return err
	}
	// A page for another topic means the topic changed underneath us. A
	// continuation of the old list is no longer possible.
	if page.Topic != "" && f.topic != "" && page.Topic != f.topic {
		if appendPage {
			f.nextToken = ""
		}
		return ErrStale
	}
	if page.Topic != "" {
		f.topic = page.Topic
	}
	if appendPage {
		f.videos = append(f.videos, page.Videos...)
	} else {
		f.videos = append([]youtube.Video(nil), page.Videos...)
	}
	f.nextToken = page.NextPageToken
	return nil
}
