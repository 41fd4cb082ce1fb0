// Package jobs holds the per-file job records for a submission session.
//
// The Store is the single writer of record state: pipelines and pollers
// request changes through merge patches and only ever see value copies, so
// concurrently running pipelines cannot lose each other's updates. Status
// carries an explicit terminal classification used by resume logic and the
// status renderers.
//
// Nothing here is persisted; records live for the lifetime of one client
// session.
package jobs
