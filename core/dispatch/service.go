// File: core/dispatch/service.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The I/O service: multi-thread-safe dispatcher over one completion
// queue, one reactor and one timer queue. Any number of goroutines may
// call Run concurrently; the completion queue is the single point of
// mutual exclusion, and at most one runner at a time drives the blocking
// reactor wait. No internal lock is ever held across a handler
// invocation.

package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	queue "github.com/eapache/queue/v2"
	"go.uber.org/zap"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/callstack"
	"github.com/momentics/hioload-aio/reactor"
)

// Service is the top-level lifetime owner of the dispatch core.
type Service struct {
	log    *zap.Logger
	demux  reactor.Demux
	timers *timerQueue
	reg    *opRegistry
	calls  *callstack.Stack

	mu      sync.Mutex
	cond    *sync.Cond
	ready   *queue.Queue[*operation]
	polling bool

	stopped     atomic.Bool
	closed      atomic.Bool
	outstanding atomic.Int64
	dispatched  atomic.Int64
}

var _ api.Executor = (*Service)(nil)
var _ api.GracefulShutdown = (*Service)(nil)

// New creates a service with its platform reactor.
func New(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	demux := cfg.demux
	if demux == nil {
		var err error
		demux, err = reactor.NewDemux(cfg.maxEvents, cfg.log)
		if err != nil {
			return nil, err
		}
	}
	s := &Service{
		log:    cfg.log,
		demux:  demux,
		timers: newTimerQueue(),
		reg:    newOpRegistry(),
		calls:  callstack.New(),
		ready:  queue.New[*operation](),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Demux exposes the readiness engine, for probes and tests.
func (s *Service) Demux() reactor.Demux { return s.demux }

// enqueue moves a finished operation into the completion queue and wakes
// one waiting runner. A runner blocked inside the reactor wait is
// interrupted through the wake descriptor.
func (s *Service) enqueue(op *operation) {
	s.mu.Lock()
	s.ready.Add(op)
	wake := s.polling
	s.cond.Signal()
	s.mu.Unlock()
	if wake {
		s.demux.Wake()
	}
}

// newIOOp builds a descriptor operation and tracks its handle.
func (s *Service) issueIO(kind opKind, fd int, attempt api.AttemptFunc, cb api.Completion) (api.Handle, error) {
	if s.closed.Load() {
		return api.InvalidHandle, api.ErrServiceClosed
	}
	op := &operation{svc: s, kind: kind, fd: fd, attempt: attempt, complete: cb}
	h := s.reg.allocate(op)
	s.outstanding.Add(1)
	if err := s.demux.Queue(fd, op.direction(), op); err != nil {
		s.reg.release(h)
		s.workDone()
		return api.InvalidHandle, err
	}
	return h, nil
}

// AsyncRead registers read-readiness interest on fd and queues an
// operation. attempt runs once per readiness notification; a would-block
// result keeps the operation queued. attempt may be nil for a plain
// readiness wait.
func (s *Service) AsyncRead(fd int, attempt api.AttemptFunc, cb api.Completion) (api.Handle, error) {
	return s.issueIO(opRead, fd, attempt, cb)
}

// AsyncWrite is the write-direction counterpart of AsyncRead.
func (s *Service) AsyncWrite(fd int, attempt api.AttemptFunc, cb api.Completion) (api.Handle, error) {
	return s.issueIO(opWrite, fd, attempt, cb)
}

// ScheduleTimerAt schedules cb to fire once the absolute deadline is
// reached on the given clock.
func (s *Service) ScheduleTimerAt(clock Clock, deadline time.Time, cb api.Completion) (api.Handle, error) {
	if s.closed.Load() {
		return api.InvalidHandle, api.ErrServiceClosed
	}
	op := &operation{svc: s, kind: opTimer, fd: -1, complete: cb}
	h := s.reg.allocate(op)
	s.outstanding.Add(1)
	if s.timers.schedule(clock, deadline, op) {
		// New earliest deadline: shorten a wait already in progress.
		s.demux.Wake()
	}
	return h, nil
}

// ScheduleTimer schedules cb to fire after d, measured on the given clock.
func (s *Service) ScheduleTimer(clock Clock, d time.Duration, cb api.Completion) (api.Handle, error) {
	return s.ScheduleTimerAt(clock, time.Now().Add(d), cb)
}

// Cancel aborts a previously issued operation by its handle. The
// completion handler still runs exactly once, with ErrOperationCancelled.
// Cancelling an operation that already fired is a silent no-op.
func (s *Service) Cancel(h api.Handle) error {
	op, ok := s.reg.lookup(h)
	if !ok {
		return nil
	}
	op.markCancelled()
	switch op.kind {
	case opTimer:
		if s.timers.cancel(op) {
			op.Complete(0, api.ErrOperationCancelled)
		}
	case opRead, opWrite:
		if s.demux.Remove(op.fd, op.direction(), op) {
			op.Complete(0, api.ErrOperationCancelled)
		}
	}
	// Already in the completion queue: the cancelled mark makes the
	// dispatcher substitute a cancellation result on delivery.
	return nil
}

// CancelDescriptor aborts every pending operation on fd, both
// directions. Used when the owning collaborator closes.
func (s *Service) CancelDescriptor(fd int) int {
	return s.demux.CancelFd(fd, api.ErrOperationCancelled)
}

// Post enqueues a handler for asynchronous execution by any worker
// goroutine and returns immediately.
func (s *Service) Post(fn func()) {
	op := &operation{svc: s, kind: opPost, fd: -1, fn: fn}
	op.state.Store(stateQueued)
	s.outstanding.Add(1)
	s.enqueue(op)
}

// Dispatch runs fn inline when the calling goroutine is already
// executing service work, otherwise posts it.
func (s *Service) Dispatch(fn func()) {
	if s.calls.Contains() {
		fn()
		return
	}
	s.Post(fn)
}

// Run blocks the calling goroutine dispatching units of work until the
// service is stopped and drained, or until no outstanding work remains.
// Returns the number of handlers executed by this call.
func (s *Service) Run() int {
	n := 0
	for s.runOne(true) {
		n++
	}
	return n
}

// RunOne executes at most one ready unit of work without blocking
// indefinitely and returns the count (0 or 1).
func (s *Service) RunOne() int {
	if s.runOne(false) {
		return 1
	}
	return 0
}

// runOne pops one completion-queue item and invokes it. When the queue
// is empty one runner becomes the poller and drives the reactor wait,
// bounded by the earliest timer deadline; other runners sleep on the
// condition variable.
func (s *Service) runOne(block bool) bool {
	s.mu.Lock()
	for s.ready.Length() == 0 {
		if s.stopped.Load() || s.outstanding.Load() == 0 {
			s.mu.Unlock()
			return false
		}
		if !s.polling {
			s.polling = true
			s.mu.Unlock()
			s.pollOnce(block)
			s.mu.Lock()
			s.polling = false
			s.cond.Signal()
			if !block && s.ready.Length() == 0 {
				s.mu.Unlock()
				return false
			}
			continue
		}
		if !block {
			s.mu.Unlock()
			return false
		}
		s.cond.Wait()
	}
	op := s.ready.Remove()
	s.mu.Unlock()
	s.invoke(op)
	return true
}

// pollOnce drives one reactor wait and one timer expiry scan. Finished
// operations land in the completion queue as a side effect.
func (s *Service) pollOnce(block bool) {
	timeout := time.Duration(0)
	if block {
		timeout = -1 // indefinite
		if d, ok := s.timers.nextDelay(time.Now()); ok {
			timeout = d
		}
	}
	if _, err := s.demux.PollOnce(timeout); err != nil {
		s.log.Warn("reactor poll failed", zap.Error(err))
	}
	for _, op := range s.timers.expire(time.Now()) {
		op.Complete(0, nil)
	}
}

// invoke runs one unit of work outside every internal lock. The
// cancellation mark is checked here, immediately before delivery.
func (s *Service) invoke(op *operation) {
	s.calls.Push()
	defer func() {
		s.calls.Pop()
		op.state.Store(stateDone)
		s.reg.release(op.id)
		s.dispatched.Add(1)
		s.workDone()
	}()
	if op.kind == opPost {
		op.fn()
		return
	}
	res := op.result
	if op.cancelled.Load() && res.Err == nil {
		res = api.Result[int]{Err: api.ErrOperationCancelled}
	}
	op.complete(res)
}

// workDone retires one unit of outstanding work and releases idle
// runners once the service runs dry.
func (s *Service) workDone() {
	if s.outstanding.Add(-1) > 0 {
		return
	}
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.demux.Wake()
}

// Stop marks the service stopped and drains the system: every operation
// still pending in the reactor or the timer queue completes with
// ErrServiceStopped, queued handlers run to completion, and every
// blocked Run call returns after the drain.
func (s *Service) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	n := s.demux.CancelAll(api.ErrServiceStopped)
	for _, op := range s.timers.drain() {
		op.Complete(0, api.ErrServiceStopped)
		n++
	}
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.demux.Wake()
	s.log.Debug("service stopped", zap.Int("drained", n))
}

// Stopped reports whether Stop has been called since the last Restart.
func (s *Service) Stopped() bool { return s.stopped.Load() }

// Restart clears the stopped flag to allow further Run calls after a
// clean stop.
func (s *Service) Restart() {
	s.stopped.Store(false)
}

// Shutdown stops the service and releases the reactor's OS resources.
// Idempotent.
func (s *Service) Shutdown() error {
	s.Stop()
	if s.closed.Swap(true) {
		return nil
	}
	return s.demux.Close()
}

// Stats exposes dispatch counters for the control probes.
func (s *Service) Stats() map[string]int64 {
	s.mu.Lock()
	queued := s.ready.Length()
	s.mu.Unlock()
	return map[string]int64{
		"dispatched":   s.dispatched.Load(),
		"outstanding":  s.outstanding.Load(),
		"queued":       int64(queued),
		"timers":       int64(s.timers.pending()),
		"reactor_ops":  int64(s.demux.Pending()),
		"live_handles": int64(s.reg.size()),
	}
}
