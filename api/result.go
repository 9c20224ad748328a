// File: api/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic result, completion callback shape and cancellation contracts.

package api

// Result wraps any payload or error.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the operation finished without error.
func (r Result[T]) Ok() bool { return r.Err == nil }

// Completion is the callback shape consumed by every Operation: invoked
// exactly once, on some worker goroutine, with either a payload (byte
// count, signal number, accepted descriptor; zero for timers) or an
// error classification.
type Completion func(Result[int])

// AttemptFunc performs one non-blocking OS attempt for a descriptor
// operation once readiness is reported. Returning ErrWouldBlock (or an
// errno that maps to it) leaves the operation queued for the next
// readiness notification.
type AttemptFunc func() (int, error)

// Cancelable is any operation that may be cancelled before it fires.
type Cancelable interface {
	// Cancel attempts to abort the operation. The completion handler is
	// still invoked, with ErrOperationCancelled.
	Cancel() error
}

// Handle identifies a pending Operation. Handles are stable for the
// lifetime of the operation and never reused within a service instance.
type Handle uint64

// InvalidHandle is returned when an issue call fails synchronously.
const InvalidHandle Handle = 0
