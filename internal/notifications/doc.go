// Package notifications delivers focus and break events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Break reminders
// can be silenced separately with notifications.breaks = false.
package notifications
