// Package preflight provides readiness checks for the filesystem paths and
// remote endpoints CageClock depends on.
//
// The CLI "cageclock status" command runs RunAll and renders each Result as a
// status line. The daemon logs the same results once at startup so a missing
// state directory or unreachable API shows up before the first fetch fails.
package preflight
