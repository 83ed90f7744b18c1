package youtube

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	// ShortsMaxSeconds is the exclusive upper bound for a Short.
	ShortsMaxSeconds = 60
	// MusicCategoryID is YouTube's "Music" category.
	MusicCategoryID = "10"
)

var musicTitleMarkers = []string{
	"official music video",
	"official audio",
	"lyric video",
	"lyrics video",
	"(lyrics)",
	"official lyric",
}

var featuringMarkers = []string{"ft.", "feat.", "featuring"}

// IsShort reports whether a video is under a minute long. Unknown durations
// (zero) are not Shorts.
func IsShort(v Video) bool {
	seconds := ParseDuration(v.Duration)
	return seconds > 0 && seconds < ShortsMaxSeconds
}

// IsMusic reports whether a video is in the music category or its title looks
// like an official music upload. A bare "official video" counts only next to
// a featuring credit, since tutorials and product launches use it too.
func IsMusic(v Video) bool {
	if v.CategoryID == MusicCategoryID {
		return true
	}
	return isMusicTitle(v.Title)
}

func isMusicTitle(title string) bool {
	folded := cases.Fold().String(title)
	for _, marker := range musicTitleMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	if !strings.Contains(folded, "official") {
		return false
	}
	for _, marker := range featuringMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// Filter drops Shorts and music, returning the kept videos and how many were
// removed.
func Filter(videos []Video) ([]Video, int) {
	kept := make([]Video, 0, len(videos))
	for _, v := range videos {
		if IsShort(v) || IsMusic(v) {
			continue
		}
		kept = append(kept, v)
	}
	return kept, len(videos) - len(kept)
}
