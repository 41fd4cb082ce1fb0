// Package polling drives a submitted job's status to a terminal state.
//
// Engine.Poll queries the job service on a fixed backoff chosen from the
// remote status, writes every observation into the job store, and gives up
// with TimedOut once its deadline passes. A Token provides cooperative
// cancellation: it is checked at the top of each iteration, so an in-flight
// status request always completes and records its result before the loop
// pauses.
package polling
