package preflight

import (
	"context"
	"strings"

	"cageclock/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks warn instead of failing.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckEndpoint(ctx, "YouTube API", cfg.YouTube.BaseURL),
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		check := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		check.Optional = true
		results = append(results, check)
	}

	return results
}

// Severity maps a result onto the status line severities used by the CLI.
func (r Result) Severity() string {
	switch {
	case r.Passed:
		return "ok"
	case r.Optional:
		return "warn"
	default:
		return "error"
	}
}
