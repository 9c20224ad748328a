// File: core/dispatch/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package dispatch is the completion-based concurrency core of
// hioload-aio: the I/O service with its shared completion queue, the
// deadline bookkeeping for steady and system timers, operation records
// with stable cancellation handles, and the strand serialization
// context.
//
// Collaborators issue work through AsyncRead/AsyncWrite/ScheduleTimer/
// Post and make progress by calling Run (or RunOne) from any number of
// goroutines. Every issued operation completes exactly once: with a
// payload, with ErrOperationCancelled, or with ErrServiceStopped when
// the service is stopped while the operation is still pending.
package dispatch
