// Package youtube is the Video Source Client: a thin YouTube Data API v3
// client that searches for a topic, enriches the hits with duration,
// statistics and channel avatars, and filters out Shorts and music.
//
// Outbound calls share one rate limiter. The metadata and avatar lookups run
// concurrently after the search and degrade to defaults on failure; only the
// search call itself can fail a request. Upstream failures are classified into
// services.Error values (quota, auth, network, upstream) so callers never
// inspect message text.
package youtube
