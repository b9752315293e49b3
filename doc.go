// Package dispatched implements a local development stand-in for the
// Dispatched webhook-delivery platform. Callers submit a job with an
// optional future delivery time and an opaque payload; the server holds
// the job in memory and, once the scheduled time (plus a configurable
// platform delay) has elapsed, forwards a signed envelope to a
// configured destination URL and records the outcome on the job.
//
// # Architecture
//
// The system is built from small, injectable components:
//
//   - job.Store — the authoritative id → record mapping (store/memory).
//   - delivery.Dispatcher — performs exactly one delivery attempt and
//     records the terminal status.
//   - scheduler.Scanner — a 1-second ticker that hands ready jobs to
//     the dispatcher.
//   - engine.Engine — create/get/reschedule/cancel operations and the
//     immediate-vs-deferred dispatch decision.
//
// State is memory-resident and lost on restart. There is exactly one
// delivery attempt per job: no retries, no backoff. Both are deliberate
// for a local simulator.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, URL-safe
// identifiers ("job_…" for jobs, "att_…" for delivery attempts).
package dispatched
