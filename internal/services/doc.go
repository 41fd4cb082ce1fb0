// Package services defines shared utilities consumed by the submission
// pipeline and the job service client.
//
// Key responsibilities:
//   - Context helpers that stamp file keys, remote job IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job statuses (error vs timed out).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the client.
package services
