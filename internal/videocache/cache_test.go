package videocache_test

import (
	"context"
	"testing"
	"time"

	"cageclock/internal/kvstore"
	"cageclock/internal/testsupport"
	"cageclock/internal/videocache"
	"cageclock/internal/youtube"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setup(t *testing.T, opts ...videocache.Option) (*videocache.Cache, *kvstore.Store, *clock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenStore(t, cfg)
	c := &clock{now: time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)}
	opts = append([]videocache.Option{videocache.WithClock(c.Now)}, opts...)
	return videocache.New(kv, opts...), kv, c
}

var page = []youtube.Video{{VideoID: "a", Title: "A"}, {VideoID: "b", Title: "B"}}

func TestHitWithinWindow(t *testing.T) {
	cache, _, c := setup(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "golang", page, "tok"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	c.now = c.now.Add(29 * time.Minute)
	entry, ok, err := cache.Get(ctx, "golang")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if len(entry.Videos) != 2 || entry.NextPageToken != "tok" || entry.Version != videocache.CurrentVersion {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestEachConditionForcesMiss(t *testing.T) {
	ctx := context.Background()

	t.Run("topic", func(t *testing.T) {
		cache, _, _ := setup(t)
		_ = cache.Put(ctx, "golang", page, "")
		if _, ok, _ := cache.Get(ctx, "rust"); ok {
			t.Fatal("expected miss for other topic")
		}
	})

	t.Run("expiry", func(t *testing.T) {
		cache, _, c := setup(t)
		_ = cache.Put(ctx, "golang", page, "")
		c.now = c.now.Add(30 * time.Minute)
		if _, ok, _ := cache.Get(ctx, "golang"); ok {
			t.Fatal("expected miss at exactly the duration")
		}
	})

	t.Run("version", func(t *testing.T) {
		cache, kv, _ := setup(t)
		_ = cache.Put(ctx, "golang", page, "")
		bumped := videocache.New(kv, videocache.WithVersion(videocache.CurrentVersion+1))
		if _, ok, _ := bumped.Get(ctx, "golang"); ok {
			t.Fatal("expected miss after version bump")
		}
	})

	t.Run("legacy entry without version", func(t *testing.T) {
		cache, kv, c := setup(t)
		testsupport.MustSet(t, kv, kvstore.KeyCachedVideosTopic, "golang")
		testsupport.MustSet(t, kv, kvstore.KeyCachedVideosTime, c.now)
		testsupport.MustSet(t, kv, kvstore.KeyCachedVideos, page)
		if _, ok, _ := cache.Get(ctx, "golang"); ok {
			t.Fatal("expected miss for unversioned entry")
		}
	})
}

func TestPutReplacesAndClearRemoves(t *testing.T) {
	cache, _, _ := setup(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "golang", page, "tok")
	if err := cache.Put(ctx, "golang", page[:1], ""); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	entry, ok, _ := cache.Get(ctx, "golang")
	if !ok || len(entry.Videos) != 1 || entry.NextPageToken != "" {
		t.Fatalf("expected wholesale replacement, got %+v", entry)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "golang"); ok {
		t.Fatal("expected miss after Clear")
	}
}

func TestGetNeverMixesConcurrentPuts(t *testing.T) {
	cache, _, _ := setup(t)
	ctx := context.Background()
	pageA := []youtube.Video{{VideoID: "a1", Title: "A1"}}
	pageB := []youtube.Video{{VideoID: "b1", Title: "B1"}}

	if err := cache.Put(ctx, "A", pageA, "tokA"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	done := make(chan struct{})
	writerErr := make(chan error, 1)
	go func() {
		defer close(writerErr)
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := cache.Put(ctx, "B", pageB, "tokB"); err != nil {
				writerErr <- err
				return
			}
			if err := cache.Put(ctx, "A", pageA, "tokA"); err != nil {
				writerErr <- err
				return
			}
		}
	}()

	for i := 0; i < 3000; i++ {
		entry, ok, err := cache.Get(ctx, "A")
		if err != nil {
			close(done)
			t.Fatalf("Get returned error: %v", err)
		}
		if !ok {
			continue
		}
		if len(entry.Videos) != 1 || entry.Videos[0].VideoID != "a1" || entry.NextPageToken != "tokA" {
			close(done)
			t.Fatalf("hit for A carries another topic's page: %+v", entry)
		}
	}
	close(done)
	if err := <-writerErr; err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
}
