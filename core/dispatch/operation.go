// File: core/dispatch/operation.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Operation records and the handle registry. An operation is owned by
// exactly one structure at a time: the reactor's per-descriptor list,
// the timer queue, or the completion queue. The atomic state machine
// below makes that ownership transfer explicit and guarantees exactly
// one completion per operation.

package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/reactor"
)

// opKind classifies a pending unit of work.
type opKind uint8

const (
	opRead opKind = iota
	opWrite
	opTimer
	opPost
)

// operation states. pending: tracked by reactor or timer queue.
// queued: moved to the completion queue with its result set.
// done: completion handler invoked.
const (
	statePending int32 = iota
	stateQueued
	stateDone
)

// operation is a single pending asynchronous unit of work.
type operation struct {
	svc  *Service
	id   api.Handle
	kind opKind
	fd   int

	attempt  api.AttemptFunc
	complete api.Completion
	fn       func() // posted handler, opPost only

	timer *timerEntry // opTimer only, guarded by the timer queue lock

	state     atomic.Int32
	cancelled atomic.Bool

	result api.Result[int] // valid once state >= stateQueued
}

var _ reactor.Operation = (*operation)(nil)

// Attempt performs one non-blocking OS attempt. Wait-style operations
// (timers, plain readiness waits) carry no attempt and succeed with a
// zero payload.
func (o *operation) Attempt() (int, error) {
	if o.attempt == nil {
		return 0, nil
	}
	return o.attempt()
}

// Complete transfers the operation into the completion queue with its
// final result. Safe to call from any goroutine; only the first call
// wins, so an operation can never be delivered twice.
func (o *operation) Complete(n int, err error) {
	if !o.state.CompareAndSwap(statePending, stateQueued) {
		return
	}
	o.result = api.Result[int]{Value: n, Err: err}
	o.svc.enqueue(o)
}

// markCancelled flags the record. The dispatcher checks the flag before
// invoking and substitutes ErrOperationCancelled for a success result.
func (o *operation) markCancelled() {
	o.cancelled.Store(true)
}

// direction maps the kind onto the reactor pending list it occupies.
func (o *operation) direction() reactor.Direction {
	if o.kind == opWrite {
		return reactor.Write
	}
	return reactor.Read
}

// opRegistry maps live handles to operation records. Handles are stable
// and never reused within a service instance.
type opRegistry struct {
	mu   sync.Mutex
	ops  map[api.Handle]*operation
	next atomic.Uint64
}

func newOpRegistry() *opRegistry {
	return &opRegistry{ops: make(map[api.Handle]*operation)}
}

// allocate assigns a fresh handle and tracks the operation.
func (r *opRegistry) allocate(o *operation) api.Handle {
	id := api.Handle(r.next.Add(1))
	o.id = id
	r.mu.Lock()
	r.ops[id] = o
	r.mu.Unlock()
	return id
}

// lookup returns the tracked operation, if still live.
func (r *opRegistry) lookup(h api.Handle) (*operation, bool) {
	r.mu.Lock()
	o, ok := r.ops[h]
	r.mu.Unlock()
	return o, ok
}

// release drops the handle once the completion handler has run.
func (r *opRegistry) release(h api.Handle) {
	if h == api.InvalidHandle {
		return
	}
	r.mu.Lock()
	delete(r.ops, h)
	r.mu.Unlock()
}

// size reports the number of live handles, for probes.
func (r *opRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}
