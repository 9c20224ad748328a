// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy for the hioload-aio dispatch core. Every asynchronous
// operation terminates with exactly one of these classifications.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors delivered to completion handlers.
var (
	// ErrRegistration indicates an invalid or already closed descriptor.
	ErrRegistration = errors.New("descriptor registration failed")

	// ErrOperationCancelled is delivered when an operation is cancelled
	// before it fires.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrServiceStopped is delivered to every operation still pending
	// when the owning service is stopped.
	ErrServiceStopped = errors.New("service stopped")

	// ErrWouldBlock marks a transient non-ready condition. It is handled
	// internally by re-queuing and never reaches a completion handler.
	ErrWouldBlock = errors.New("operation would block")

	// ErrServiceClosed indicates the service has been shut down and no
	// further work may be submitted.
	ErrServiceClosed = errors.New("service is closed")
)

// SystemError wraps a failed OS call together with its error code.
type SystemError struct {
	Op    string
	Errno error
}

// Error implements the error interface.
func (e *SystemError) Error() string {
	return fmt.Sprintf("system error in %s: %v", e.Op, e.Errno)
}

// Unwrap exposes the underlying OS error for errors.Is/As.
func (e *SystemError) Unwrap() error { return e.Errno }

// NewSystemError builds a SystemError for the named OS call.
func NewSystemError(op string, errno error) *SystemError {
	return &SystemError{Op: op, Errno: errno}
}

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeRegistration
	ErrCodeCancelled
	ErrCodeStopped
	ErrCodeSystem
	ErrCodeInvalidArgument
	ErrCodeNotSupported
)

// CodeOf classifies an error delivered to a completion handler.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.Is(err, ErrOperationCancelled):
		return ErrCodeCancelled
	case errors.Is(err, ErrServiceStopped):
		return ErrCodeStopped
	case errors.Is(err, ErrRegistration):
		return ErrCodeRegistration
	default:
		var sys *SystemError
		if errors.As(err, &sys) {
			return ErrCodeSystem
		}
		return ErrCodeInvalidArgument
	}
}
