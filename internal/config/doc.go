// Package config loads, normalizes, and validates CageClock configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YOUTUBE_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: where state and logs live, how the YouTube client paces requests, the
// focus and break timings, and cache freshness rules.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
