// Package jobapi talks to the remote asset-extraction job service.
//
// The Client covers job creation, media upload (multipart or presigned PUT),
// enqueueing, status queries, and result retrieval. Non-2xx responses surface
// as *StatusError carrying the service's error detail; transport failures are
// tagged services.ErrTransient so callers can decide whether to retry.
package jobapi
