package youtube

import "testing"

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		"PT1H30M15S": 5415,
		"PT4M13S":    253,
		"PT30S":      30,
		"PT0S":       0,
		"PT2H":       7200,
		"PT1H5S":     3605,
		"invalid":    0,
		"PT":         0,
		"":           0,
		"P1DT2H":     0,
	}
	for input, want := range tests {
		if got := ParseDuration(input); got != want {
			t.Fatalf("ParseDuration(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]string{
		"PT1H30M15S": "1:30:15",
		"PT4M13S":    "4:13",
		"PT30S":      "0:30",
		"bogus":      "0:00",
	}
	for input, want := range tests {
		if got := FormatDuration(input); got != want {
			t.Fatalf("FormatDuration(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatViewCount(t *testing.T) {
	tests := map[string]string{
		"1234567":      "1.2M views",
		"12345":        "12.3K views",
		"123":          "123 views",
		"0":            "0 views",
		"not-a-number": "0 views",
		"1000000":      "1M views",
		"2500000000":   "2.5B views",
	}
	for input, want := range tests {
		if got := FormatViewCount(input); got != want {
			t.Fatalf("FormatViewCount(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDecodeEntities(t *testing.T) {
	in := "Tom &amp; Jerry &lt;3 &quot;quoted&quot; it&#39;s a&#x2F;b &#x60;x&#x3D;y&#x60; &copy;"
	want := "Tom & Jerry <3 \"quoted\" it's a/b `x=y` &copy;"
	if got := DecodeEntities(in); got != want {
		t.Fatalf("DecodeEntities = %q, want %q", got, want)
	}
}

func TestFilterShortsAndMusic(t *testing.T) {
	videos := []Video{
		{VideoID: "short", Title: "quick tip", Duration: "PT45S"},
		{VideoID: "minute", Title: "exactly a minute", Duration: "PT1M"},
		{VideoID: "unknown", Title: "no metadata", Duration: "PT0S"},
		{VideoID: "music-cat", Title: "lecture", Duration: "PT20M", CategoryID: MusicCategoryID},
		{VideoID: "music-title", Title: "Artist - Song (Official Music Video)", Duration: "PT3M30S", CategoryID: "22"},
		{VideoID: "lyrics", Title: "Song (Lyrics)", Duration: "PT3M", CategoryID: "24"},
		{VideoID: "feat", Title: "Artist ft. Other - Song [OFFICIAL]", Duration: "PT3M"},
		{VideoID: "feat-unofficial", Title: "Go talk feat. guest speakers", Duration: "PT40M"},
		{VideoID: "talk", Title: "GopherCon keynote", Duration: "PT45M", CategoryID: "28"},
		{VideoID: "walkthrough", Title: "Official Video Walkthrough of Go 1.22", Duration: "PT25M", CategoryID: "28"},
		{VideoID: "feat-video", Title: "Artist feat. Other - Song (Official Video)", Duration: "PT4M", CategoryID: "22"},
	}

	kept, removed := Filter(videos)
	if removed != 6 {
		t.Fatalf("removed = %d, want 6", removed)
	}
	want := []string{"minute", "unknown", "feat-unofficial", "talk", "walkthrough"}
	if len(kept) != len(want) {
		t.Fatalf("kept %d videos, want %d: %+v", len(kept), len(want), kept)
	}
	for i, id := range want {
		if kept[i].VideoID != id {
			t.Fatalf("kept[%d] = %s, want %s", i, kept[i].VideoID, id)
		}
	}
}
