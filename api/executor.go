// File: api/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor contract for parallel handler dispatch.

package api

// Executor abstracts parallel handler execution. The dispatch service
// implements it; collaborators that only need to defer work should
// depend on this interface rather than the concrete service.
type Executor interface {
	// Post schedules a handler for asynchronous execution by any worker
	// goroutine and returns immediately.
	Post(fn func())

	// Dispatch runs the handler inline when the caller is already a
	// worker goroutine of this executor, otherwise posts it.
	Dispatch(fn func())
}

// GracefulShutdown unifies orderly teardown of components.
type GracefulShutdown interface {
	// Shutdown stops internal services and releases resources.
	Shutdown() error
}
