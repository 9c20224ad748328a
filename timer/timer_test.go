// File: timer/timer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package timer_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
	"github.com/momentics/hioload-aio/fake"
	"github.com/momentics/hioload-aio/timer"
)

func newService(t *testing.T) *dispatch.Service {
	t.Helper()
	svc, err := dispatch.New(dispatch.WithDemux(fake.NewDemux()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return svc
}

func TestSteadyTimerFires(t *testing.T) {
	svc := newService(t)
	tm := timer.NewSteadyTimer(svc)
	tm.ExpiresAfter(15 * time.Millisecond)
	start := time.Now()
	var fired atomic.Bool
	if err := tm.AsyncWait(func(r api.Result[int]) {
		if r.Err != nil {
			t.Errorf("wait error: %v", r.Err)
		}
		fired.Store(true)
	}); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	svc.Run()
	if !fired.Load() {
		t.Fatal("steady timer did not fire")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("steady timer fired before its deadline")
	}
}

func TestSystemTimerFires(t *testing.T) {
	svc := newService(t)
	tm := timer.NewSystemTimer(svc)
	tm.ExpiresAt(time.Now().Add(10 * time.Millisecond))
	var fired atomic.Bool
	if err := tm.AsyncWait(func(r api.Result[int]) { fired.Store(true) }); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	svc.Run()
	if !fired.Load() {
		t.Fatal("system timer did not fire")
	}
}

func TestCancelDeliversCancellation(t *testing.T) {
	svc := newService(t)
	tm := timer.NewSteadyTimer(svc)
	tm.ExpiresAfter(time.Hour)
	var calls atomic.Int32
	var got error
	if err := tm.AsyncWait(func(r api.Result[int]) {
		calls.Add(1)
		got = r.Err
	}); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	if err := tm.Cancel(); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	svc.Run()
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want exactly once", calls.Load())
	}
	if !errors.Is(got, api.ErrOperationCancelled) {
		t.Fatalf("cancelled wait error = %v, want ErrOperationCancelled", got)
	}
}

func TestMovingDeadlineCancelsWaitInFlight(t *testing.T) {
	svc := newService(t)
	tm := timer.NewSteadyTimer(svc)
	tm.ExpiresAfter(time.Hour)
	var first error
	var fired atomic.Int32
	if err := tm.AsyncWait(func(r api.Result[int]) {
		fired.Add(1)
		first = r.Err
	}); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	tm.ExpiresAfter(5 * time.Millisecond)
	var second error
	if err := tm.AsyncWait(func(r api.Result[int]) {
		fired.Add(1)
		second = r.Err
	}); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	svc.Run()
	if fired.Load() != 2 {
		t.Fatalf("%d completions, want 2", fired.Load())
	}
	if !errors.Is(first, api.ErrOperationCancelled) {
		t.Fatalf("displaced wait error = %v, want ErrOperationCancelled", first)
	}
	if second != nil {
		t.Fatalf("rescheduled wait error = %v, want nil", second)
	}
}

func TestTimerRacesReadAndCancelsLoser(t *testing.T) {
	// The composition pattern for I/O timeouts: race a timer against a
	// read that never becomes ready and cancel the loser.
	d := fake.NewDemux()
	svc, err := dispatch.New(dispatch.WithDemux(d))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	const fd = 4
	var readErr error
	h, err := svc.AsyncRead(fd, nil, func(r api.Result[int]) { readErr = r.Err })
	if err != nil {
		t.Fatalf("AsyncRead error: %v", err)
	}
	tm := timer.NewSteadyTimer(svc)
	tm.ExpiresAfter(10 * time.Millisecond)
	if err := tm.AsyncWait(func(r api.Result[int]) {
		if r.Err == nil {
			svc.Cancel(h)
		}
	}); err != nil {
		t.Fatalf("AsyncWait error: %v", err)
	}
	svc.Run()
	if !errors.Is(readErr, api.ErrOperationCancelled) {
		t.Fatalf("timed-out read error = %v, want ErrOperationCancelled", readErr)
	}
}
