package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateFocus(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Stats.ResetHours <= 0 {
		return errors.New("stats.reset_hours must be positive")
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	parsed, err := url.Parse(c.YouTube.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("youtube.base_url %q must be an absolute URL", c.YouTube.BaseURL)
	}
	if c.YouTube.PageSize < MinPageSize || c.YouTube.PageSize > MaxPageSize {
		return fmt.Errorf("youtube.page_size must be between %d and %d", MinPageSize, MaxPageSize)
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		return errors.New("youtube.requests_per_second must be positive")
	}
	if c.YouTube.RequestTimeout <= 0 {
		return errors.New("youtube.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateFocus() error {
	if c.Focus.NudgeIntervalMinutes <= 0 {
		return errors.New("focus.nudge_interval_minutes must be positive")
	}
	if c.Focus.NudgeResults <= 0 || c.Focus.NudgeResults > MaxPageSize {
		return fmt.Errorf("focus.nudge_results must be between 1 and %d", MaxPageSize)
	}
	if c.Focus.BreakMinutes <= 0 {
		return errors.New("focus.break_minutes must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.DurationMinutes <= 0 {
		return errors.New("cache.duration_minutes must be positive")
	}
	if c.Cache.Version <= 0 {
		return errors.New("cache.version must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
