// Package main hosts the CageClock CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon: focus toggling, breaks, topics, API key management,
// curated video listings, and URL checks. It centralizes configuration
// resolution and socket discovery so subcommands only format results.
//
// Keep this package lean: behavior belongs in the internal packages; commands
// here only marshal flags into bus messages and render replies.
package main
