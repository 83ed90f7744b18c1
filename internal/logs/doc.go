// Package logs reads the daemon's JSON log file for `cageclock logs`.
//
// Tail returns the last N lines or everything after a byte offset, and in
// follow mode polls until new lines arrive. Parse decodes a line written by
// the logging package's JSON handler into an Entry so the CLI can filter by
// level or component and render a compact view.
package logs
