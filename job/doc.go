// Package job defines the Job entity, its status state machine, and the
// Store persistence contract.
//
// A job moves QUEUED → DISPATCHED → COMPLETED|FAILED, or QUEUED →
// CANCELLED via an explicit cancel. COMPLETED, FAILED, and CANCELLED are
// terminal: no component transitions a job out of them.
package job
