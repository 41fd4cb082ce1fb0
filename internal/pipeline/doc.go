// Package pipeline runs one file through create, upload, enqueue, and
// (optionally) polling.
//
// Stages execute strictly in order and every transition is written to the
// job store before the next request is issued. A failure at any stage ends
// that file's pipeline in Error while keeping whatever remote job identifier
// was already obtained. Panics are recovered at the Run boundary so one file
// can never abort its siblings.
package pipeline
