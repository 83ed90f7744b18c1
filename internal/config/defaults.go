package config

const (
	defaultConfigPath           = "~/.config/cageclock/config.toml"
	defaultStateDir             = "~/.local/share/cageclock"
	defaultLogDir               = "~/.local/share/cageclock/logs"
	defaultYouTubeBaseURL       = "https://www.googleapis.com/youtube/v3"
	defaultPageSize             = 24
	defaultRequestsPerSecond    = 2.0
	defaultRequestTimeout       = 10
	defaultNudgeIntervalMinutes = 30
	defaultNudgeResults         = 5
	defaultBreakMinutes         = 10
	defaultCacheMinutes         = 30
	defaultCacheVersion         = 2
	defaultStatsResetHours      = 24
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"

	// MinPageSize and MaxPageSize bound the configured results per page.
	MinPageSize = 5
	MaxPageSize = 50
)

// DefaultBlockedPaths lists the distraction-prone YouTube paths that are
// redirected away from while focus mode is on.
var DefaultBlockedPaths = []string{
	"/feed/trending",
	"/gaming",
	"/feed/explore",
	"/shorts",
	"/feed/history",
	"/feed/subscriptions",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		YouTube: YouTube{
			BaseURL:           defaultYouTubeBaseURL,
			PageSize:          defaultPageSize,
			RequestsPerSecond: defaultRequestsPerSecond,
			RequestTimeout:    defaultRequestTimeout,
		},
		Focus: Focus{
			NudgeIntervalMinutes: defaultNudgeIntervalMinutes,
			NudgeResults:         defaultNudgeResults,
			BreakMinutes:         defaultBreakMinutes,
			BlockedPaths:         append([]string(nil), DefaultBlockedPaths...),
		},
		Cache: Cache{
			DurationMinutes: defaultCacheMinutes,
			Version:         defaultCacheVersion,
		},
		Stats: Stats{
			ResetHours: defaultStatsResetHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Breaks:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
