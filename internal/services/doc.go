// Package services defines shared utilities consumed by the fetch pipeline,
// the focus machine and the IPC layer.
//
// Key responsibilities:
//   - The structured Error type and its factory functions. Every failure that
//     reaches a user carries an ErrorKind (validation, auth, quota, network,
//     upstream, storage) plus the three classification flags the CLI branches on.
//   - Context helpers that stamp bus message types and correlation identifiers
//     for logging.
//
// Use these helpers when adding new handlers so error reporting and
// observability stay uniform across the daemon.
package services
