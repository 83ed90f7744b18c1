package youtube

// Video is one curated search result. Values are immutable once built.
type Video struct {
	VideoID          string `json:"videoId"`
	Title            string `json:"title"`
	ThumbnailURL     string `json:"thumbnailUrl"`
	ChannelName      string `json:"channelName"`
	ChannelID        string `json:"channelId"`
	ChannelAvatarURL string `json:"channelAvatarUrl"`
	PublishedAt      string `json:"publishedAt"`
	Description      string `json:"description"`
	Duration         string `json:"duration"`
	ViewCount        string `json:"viewCount"`
	CategoryID       string `json:"categoryId"`
}

// SearchResult is one filtered page. NextPageToken and TotalResults are
// passed through from the upstream page before filtering.
type SearchResult struct {
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	TotalResults  int     `json:"totalResults"`
	FilteredCount int     `json:"filteredCount"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
}

func (t thumbnails) best() string {
	for _, th := range []*thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

type searchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		PublishedAt  string     `json:"publishedAt"`
		ChannelID    string     `json:"channelId"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Thumbnails   thumbnails `json:"thumbnails"`
		ChannelTitle string     `json:"channelTitle"`
	} `json:"snippet"`
}

type videosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
		Snippet struct {
			CategoryID string `json:"categoryId"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiErrorBody struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"errors"`
}
