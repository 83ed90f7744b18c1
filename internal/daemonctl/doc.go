// Package daemonctl launches, stops, and inspects the cageclock daemon process
// from the CLI. It talks to the daemon over the IPC socket and falls back to
// the pid file when the daemon stops answering.
package daemonctl
