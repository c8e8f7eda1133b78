// Package worker connects the mixer to an out-of-process analysis worker.
//
// The wire protocol is JSON: a request {id, type, payload} is answered by
// {id, type, payload} or {id, type: "ERROR", error}. A Bridge assigns
// monotonically increasing ids, correlates responses through a pending map
// and hands callers a Pending handle. Nothing on the mixer side waits on the
// worker without a deadline; a missing or silent worker surfaces as
// ErrWorkerUnavailable.
//
// The package also carries a reference worker: Handler implements the
// INIT, ANALYZE_CHUNK, FINGERPRINT and STORE_BLOB commands, and Server
// exposes it over a WebSocket endpoint. Blobs go to a BlobStore (memory or
// MinIO) and analysis results are cached in a ResultCache (memory or Redis).
package worker
