// Package notifications delivers batch events via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. Batch milestones
// and per-file failures can be switched off independently.
package notifications
