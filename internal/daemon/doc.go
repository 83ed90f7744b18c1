// Package daemon coordinates the long-running CageClock process.
//
// New wires configuration, the kvstore, the key store, the YouTube client,
// the page cache, the fetch orchestrator, daily stats, notifications and the
// focus machine into a single Daemon built once at startup. Start takes a
// flock-based lock so only one instance runs per state directory and then
// restores focus timers from persisted state.
//
// Request handling lives in internal/ipc; the daemon only owns lifecycle and
// exposes its components.
package daemon
