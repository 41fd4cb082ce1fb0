// Package preflight provides readiness checks for the job service and the
// local paths roadeye depends on.
//
// These checks run in two contexts:
//   - submit calls CheckJobService before registering a batch so an
//     unreachable service fails fast instead of failing every file.
//   - The CLI "roadeye health" command runs RunAll and renders each result.
//
// Optional checks describe features that are off; they never fail a run.
package preflight
