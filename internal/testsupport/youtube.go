package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeVideo is one search hit served by FakeYouTube.
type FakeVideo struct {
	ID           string
	Title        string
	Description  string
	ChannelID    string
	ChannelTitle string
	Duration     string
	ViewCount    string
	CategoryID   string
}

// FakeError makes an endpoint answer with a YouTube-shaped error object.
type FakeError struct {
	Status  int
	Message string
	Reason  string
}

// FakeYouTube serves /search, /videos and /channels from canned pages.
type FakeYouTube struct {
	Server *httptest.Server

	mu            sync.Mutex
	pages         [][]FakeVideo
	searchErr     *FakeError
	videosErr     *FakeError
	channelsErr   *FakeError
	searchCalls   int
	videosCalls   int
	channelsCalls int
	lastSearch    url.Values
}

// NewFakeYouTube starts a server whose first page is videos. Additional pages
// are reached with the tokens "page-2", "page-3" and so on.
func NewFakeYouTube(t testing.TB, pages ...[]FakeVideo) *FakeYouTube {
	t.Helper()

	fake := &FakeYouTube{pages: pages}
	mux := http.NewServeMux()
	mux.HandleFunc("/search", fake.handleSearch)
	mux.HandleFunc("/videos", fake.handleVideos)
	mux.HandleFunc("/channels", fake.handleChannels)
	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Server.Close)
	return fake
}

// URL returns the base URL to configure the client with.
func (f *FakeYouTube) URL() string {
	return f.Server.URL
}

// FailSearch makes subsequent search calls fail.
func (f *FakeYouTube) FailSearch(e *FakeError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr = e
}

// FailVideos makes subsequent metadata calls fail.
func (f *FakeYouTube) FailVideos(e *FakeError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videosErr = e
}

// FailChannels makes subsequent avatar calls fail.
func (f *FakeYouTube) FailChannels(e *FakeError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelsErr = e
}

// SearchCalls returns how many search requests were served.
func (f *FakeYouTube) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

// MetadataCalls returns the number of videos and channels requests served.
func (f *FakeYouTube) MetadataCalls() (videos, channels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videosCalls, f.channelsCalls
}

// LastSearch returns the query parameters of the most recent search.
func (f *FakeYouTube) LastSearch() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSearch
}

func (f *FakeYouTube) lookup(id string) (FakeVideo, bool) {
	for _, page := range f.pages {
		for _, v := range page {
			if v.ID == id {
				return v, true
			}
		}
	}
	return FakeVideo{}, false
}

func (f *FakeYouTube) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastSearch = r.URL.Query()
	if f.searchErr != nil {
		writeFakeError(w, f.searchErr)
		return
	}

	idx := 0
	if token := r.URL.Query().Get("pageToken"); token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "page-"))
		if err != nil || n < 2 {
			writeFakeError(w, &FakeError{Status: http.StatusBadRequest, Message: "invalid page token", Reason: "invalidPageToken"})
			return
		}
		idx = n - 1
	}

	var page []FakeVideo
	if idx < len(f.pages) {
		page = f.pages[idx]
	}
	items := make([]map[string]any, 0, len(page))
	total := 0
	for _, p := range f.pages {
		total += len(p)
	}
	for _, v := range page {
		items = append(items, map[string]any{
			"id": map[string]any{"kind": "youtube#video", "videoId": v.ID},
			"snippet": map[string]any{
				"title":        v.Title,
				"description":  v.Description,
				"channelId":    v.ChannelID,
				"channelTitle": v.ChannelTitle,
				"publishedAt":  "2024-01-15T10:00:00Z",
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://i.ytimg.com/vi/" + v.ID + "/default.jpg"},
					"high":    map[string]any{"url": "https://i.ytimg.com/vi/" + v.ID + "/hqdefault.jpg"},
				},
			},
		})
	}
	body := map[string]any{
		"items":    items,
		"pageInfo": map[string]any{"totalResults": total},
	}
	if idx+1 < len(f.pages) {
		body["nextPageToken"] = fmt.Sprintf("page-%d", idx+2)
	}
	writeFakeJSON(w, body)
}

func (f *FakeYouTube) handleVideos(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videosCalls++
	if f.videosErr != nil {
		writeFakeError(w, f.videosErr)
		return
	}
	items := []map[string]any{}
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		v, ok := f.lookup(id)
		if !ok {
			continue
		}
		items = append(items, map[string]any{
			"id":             v.ID,
			"contentDetails": map[string]any{"duration": v.Duration},
			"statistics":     map[string]any{"viewCount": v.ViewCount},
			"snippet":        map[string]any{"categoryId": v.CategoryID},
		})
	}
	writeFakeJSON(w, map[string]any{"items": items})
}

func (f *FakeYouTube) handleChannels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelsCalls++
	if f.channelsErr != nil {
		writeFakeError(w, f.channelsErr)
		return
	}
	items := []map[string]any{}
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		if id == "" {
			continue
		}
		items = append(items, map[string]any{
			"id": id,
			"snippet": map[string]any{
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://yt3.ggpht.com/" + id + ".jpg"},
				},
			},
		})
	}
	writeFakeJSON(w, map[string]any{"items": items})
}

func writeFakeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeFakeError(w http.ResponseWriter, e *FakeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    e.Status,
			"message": e.Message,
			"errors":  []map[string]any{{"reason": e.Reason, "message": e.Message}},
		},
	})
}
