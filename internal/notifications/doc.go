// Package notifications delivers run-level events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set, so callers never branch on whether
// notifications are enabled.
package notifications
