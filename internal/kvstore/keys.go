package kvstore

// Persisted state keys. The names match the storage layout of the browser
// extension so exported state stays recognizable.
const (
	KeyIsEnabled    = "isEnabled"
	KeyFocusTopic   = "focusTopic"
	KeyFocusTopics  = "focusTopics"
	KeyBreakMode    = "breakMode"
	KeyBreakEndTime = "breakEndTime"

	KeyLegacyAPIKey   = "youtubeApiKey"
	KeyAPIKeys        = "apiKeys"
	KeyActiveAPIKeyID = "activeApiKeyId"

	KeyCachedVideos        = "cachedVideos"
	KeyCachedVideosTopic   = "cachedVideosTopic"
	KeyCachedVideosTime    = "cachedVideosTime"
	KeyCacheVersion        = "cacheVersion"
	KeyCachedNextPageToken = "cachedNextPageToken"

	KeyVideosFilteredToday = "videosFilteredToday"
	KeyVideosWatchedToday  = "videosWatchedToday"
	KeyTimeFocusedToday    = "timeFocusedToday"
	KeyLastStatsReset      = "lastStatsReset"
	KeySessionStartTime    = "sessionStartTime"
)
