// Package main hosts the roadeye CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch submissions
// against the remote job service, status and result lookups for existing
// jobs, and configuration scaffolding. Configuration resolution and logger
// setup live in commandContext so subcommands only deal with presentation.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through commands and flags.
package main
