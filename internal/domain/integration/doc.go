// Package integration defines the ports through which the order workflow
// reaches external systems, and the typed error every adapter returns.
//
// Adapters classify failures at the boundary: transport errors, timeouts,
// 5xx, 408 and 429 responses are Unavailable and may be retried by the
// caller; every other non-2xx response is Rejected and is never retried
// automatically. Adapters themselves never retry.
package integration
