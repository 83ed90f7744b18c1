// Package kvstore persists CageClock state in a flat key-value namespace
// backed by SQLite.
//
// Each key maps to one JSON-encoded row. Writes run inside a transaction and
// retry on SQLITE_BUSY with capped backoff, so multi-key updates such as a
// cached page or a break transition land atomically. After commit, every key
// whose value actually changed is published as a Change{Key, Old, New} to the
// subscriptions interested in that key.
package kvstore
