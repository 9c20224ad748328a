// File: timer/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Waitable timer adapters over the dispatch timer queue. A SteadyTimer
// measures deadlines on the monotonic clock; a SystemTimer measures
// them on the adjustable wall clock. Moving the deadline cancels a wait
// already in flight, which then completes with ErrOperationCancelled.

package timer

import (
	"sync"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// Timer is a waitable single-deadline timer.
type Timer struct {
	svc   *dispatch.Service
	clock dispatch.Clock

	mu       sync.Mutex
	deadline time.Time
	handle   api.Handle
}

var _ api.Cancelable = (*Timer)(nil)

// NewSteadyTimer creates a timer on the monotonic clock.
func NewSteadyTimer(svc *dispatch.Service) *Timer {
	return &Timer{svc: svc, clock: dispatch.ClockSteady}
}

// NewSystemTimer creates a timer on the wall clock.
func NewSystemTimer(svc *dispatch.Service) *Timer {
	return &Timer{svc: svc, clock: dispatch.ClockSystem}
}

// ExpiresAfter moves the deadline to now+d, cancelling any wait in
// flight.
func (t *Timer) ExpiresAfter(d time.Duration) {
	t.ExpiresAt(time.Now().Add(d))
}

// ExpiresAt moves the deadline to the absolute time at, cancelling any
// wait in flight.
func (t *Timer) ExpiresAt(at time.Time) {
	t.mu.Lock()
	h := t.handle
	t.handle = api.InvalidHandle
	t.deadline = at
	t.mu.Unlock()
	if h != api.InvalidHandle {
		_ = t.svc.Cancel(h)
	}
}

// Expiry returns the current deadline.
func (t *Timer) Expiry() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// AsyncWait schedules cb to fire once the deadline is reached. The
// payload is always zero; cancellation and service stop are reported
// through the result error.
func (t *Timer) AsyncWait(cb api.Completion) error {
	t.mu.Lock()
	deadline := t.deadline
	t.mu.Unlock()
	h, err := t.svc.ScheduleTimerAt(t.clock, deadline, cb)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.handle = h
	t.mu.Unlock()
	return nil
}

// Cancel aborts the pending wait, if any. Its handler completes with
// ErrOperationCancelled. A timer that already fired is a silent no-op.
func (t *Timer) Cancel() error {
	t.mu.Lock()
	h := t.handle
	t.handle = api.InvalidHandle
	t.mu.Unlock()
	if h == api.InvalidHandle {
		return nil
	}
	return t.svc.Cancel(h)
}
