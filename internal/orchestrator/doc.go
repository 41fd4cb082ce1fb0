// Package orchestrator launches and supervises a batch of file pipelines.
//
// StartAll validates the batch, fans out one pipeline per file, and waits for
// every pipeline to settle regardless of individual failures. StopPolling and
// ResumePolling pause and restart status polling for jobs that were already
// handed to the remote queue; resuming never re-runs create, upload, or
// enqueue.
package orchestrator
