// File: core/dispatch/strand.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Strand: serialized handler execution without a lock held across the
// handlers. A private FIFO plus an owner flag; whichever goroutine
// claims the flag drains the queue one handler at a time, then releases
// it. Handlers posted to one strand therefore execute in posting order
// and never concurrently, regardless of how many runners the service
// has. The claim also batches several handlers onto one worker slot.

package dispatch

import (
	"sync"

	queue "github.com/eapache/queue/v2"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/callstack"
)

// Strand is a serialization context over one service. The zero value is
// not usable; create with NewStrand. Strands are shared by reference:
// every collaborator holding the pointer posts into the same queue, and
// the strand stays alive while any pending operation references it.
type Strand struct {
	svc   *Service
	calls *callstack.Stack

	mu      sync.Mutex
	q       *queue.Queue[func()]
	running bool
}

// NewStrand creates a serialization context bound to svc.
func NewStrand(svc *Service) *Strand {
	return &Strand{
		svc:   svc,
		calls: callstack.New(),
		q:     queue.New[func()](),
	}
}

// Service returns the owning service.
func (st *Strand) Service() *Service { return st.svc }

// RunningInThis reports whether the calling goroutine is currently
// executing a handler of this strand.
func (st *Strand) RunningInThis() bool { return st.calls.Contains() }

// Dispatch runs fn through the strand. When the calling goroutine is
// already inside the strand, fn runs inline. When the strand is idle,
// the caller claims it and drains the queue itself. Otherwise fn is
// appended and the current owner will run it.
func (st *Strand) Dispatch(fn func()) {
	if st.calls.Contains() {
		fn()
		return
	}
	st.mu.Lock()
	if st.running {
		st.q.Add(fn)
		st.mu.Unlock()
		return
	}
	st.running = true
	st.mu.Unlock()
	st.drain(fn)
}

// Post appends fn to the strand's FIFO and returns immediately. fn is
// guaranteed not to start before the currently running handler of this
// strand (if any) returns, even when posted from inside that handler.
func (st *Strand) Post(fn func()) {
	st.mu.Lock()
	if st.running {
		st.q.Add(fn)
		st.mu.Unlock()
		return
	}
	st.running = true
	st.mu.Unlock()
	st.svc.Post(func() { st.drain(fn) })
}

// Wrap adapts a completion handler so its invocation is serialized
// through the strand. The returned Completion is what collaborators
// hand to the issue calls.
func (st *Strand) Wrap(cb api.Completion) api.Completion {
	return func(r api.Result[int]) {
		st.Dispatch(func() { cb(r) })
	}
}

// WrapHandler is Wrap for plain handlers.
func (st *Strand) WrapHandler(fn func()) func() {
	return func() { st.Dispatch(fn) }
}

// drain executes first and then every queued handler, one at a time,
// releasing the owner flag only once the queue is empty. The strand
// lock is never held while a handler runs.
func (st *Strand) drain(first func()) {
	st.calls.Push()
	defer st.calls.Pop()
	fn := first
	for {
		fn()
		st.mu.Lock()
		if st.q.Length() == 0 {
			st.running = false
			st.mu.Unlock()
			return
		}
		fn = st.q.Remove()
		st.mu.Unlock()
	}
}
