// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral readiness demultiplexer contract. The reactor owns the
// mapping from watched descriptor to its pending read/write operation
// lists and performs the single blocking multiplexed wait, bounded by the
// nearest timer deadline supplied by the dispatch service.

package reactor

import "time"

// Direction selects one of the two per-descriptor pending lists.
type Direction int

const (
	// Read readiness (accept, receive, signal delivery).
	Read Direction = iota
	// Write readiness (connect, send).
	Write

	numDirections
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// Operation is a pending asynchronous unit of work tracked by the
// demultiplexer. The dispatch core provides the concrete type; the
// reactor never invokes completion handlers itself, it only moves
// finished operations into the completion queue via Complete.
type Operation interface {
	// Attempt performs one non-blocking OS attempt once readiness is
	// reported. A transient (would-block) result leaves the operation
	// at the head of its pending list.
	Attempt() (int, error)

	// Complete hands the operation to the service completion queue with
	// its final result. Called exactly once per operation.
	Complete(n int, err error)
}

// Demux is the OS-specific readiness-notification engine.
type Demux interface {
	// Register adds a descriptor to the watch table. Idempotent; fails
	// with api.ErrRegistration for invalid or closed descriptors.
	Register(fd int) error

	// Queue appends op to the descriptor's pending list for the given
	// direction and arms interest. It does not perform the wait.
	Queue(fd int, dir Direction, op Operation) error

	// Remove deletes op from the descriptor's pending list without
	// completing it. Reports whether op was still queued.
	Remove(fd int, dir Direction, op Operation) bool

	// PollOnce performs one blocking wait bounded by timeout (negative
	// means wait indefinitely) and dispatches at most one operation per
	// ready descriptor per direction. Returns the number dispatched.
	PollOnce(timeout time.Duration) (int, error)

	// CancelFd removes every pending operation for fd from both lists,
	// completing each with err, and drops the registration.
	CancelFd(fd int, err error) int

	// CancelAll drains every registration, completing all pending
	// operations with err. Used by service stop.
	CancelAll(err error) int

	// Wake interrupts a concurrent PollOnce from any goroutine.
	Wake()

	// Pending returns the number of queued operations, for probes.
	Pending() int

	// Close releases the OS resources. Pending operations must have
	// been cancelled first.
	Close() error
}
