// Package delivery performs outbound webhook deliveries.
//
// The Dispatcher executes exactly one delivery attempt per job: it
// claims the job through the store's atomic QUEUED to DISPATCHED
// transition (so a cancel or a concurrent dispatch racing the readiness
// scan cannot produce a second send), posts a signed envelope through a
// Forwarder, and records COMPLETED or FAILED.
//
// The Forwarder is a black box to the dispatcher: it either returns nil
// (success status received) or an error (non-success status or transport
// failure). Retries, TLS, and connection pooling live behind it.
package delivery
