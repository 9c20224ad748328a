// File: core/dispatch/service_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Service loop semantics: run-until-idle, posting, cancellation,
// stop-drain and restart, against the in-memory readiness engine.

package dispatch_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
	"github.com/momentics/hioload-aio/fake"
	"github.com/momentics/hioload-aio/reactor"
)

func newTestService(t *testing.T) (*dispatch.Service, *fake.Demux) {
	t.Helper()
	d := fake.NewDemux()
	svc, err := dispatch.New(dispatch.WithDemux(d))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return svc, d
}

func TestRunExecutesPostedHandlersInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		svc.Post(func() { order = append(order, i) })
	}
	if n := svc.Run(); n != 5 {
		t.Fatalf("Run() = %d, want 5", n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("handler order %v, want ascending", order)
		}
	}
}

func TestRunReturnsWhenOutOfWork(t *testing.T) {
	svc, _ := newTestService(t)
	done := make(chan int, 1)
	go func() { done <- svc.Run() }()
	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("Run() = %d, want 0", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return with no outstanding work")
	}
}

func TestRunOneCountsSingleUnits(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Post(func() {})
	svc.Post(func() {})
	if got := svc.RunOne(); got != 1 {
		t.Fatalf("RunOne() = %d, want 1", got)
	}
	if got := svc.RunOne(); got != 1 {
		t.Fatalf("RunOne() = %d, want 1", got)
	}
	if got := svc.RunOne(); got != 0 {
		t.Fatalf("RunOne() = %d, want 0", got)
	}
}

func TestReadCompletionOrderPerDescriptor(t *testing.T) {
	svc, d := newTestService(t)
	const fd = 7
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if _, err := svc.AsyncRead(fd, nil, func(api.Result[int]) { order = append(order, i) }); err != nil {
			t.Fatalf("AsyncRead error: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		d.MakeReady(fd, reactor.Read)
	}
	svc.Run()
	if len(order) != 3 {
		t.Fatalf("completions = %d, want 3", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("completion order %v, want issue order", order)
		}
	}
}

func TestOneDispatchPerReadinessNotification(t *testing.T) {
	svc, d := newTestService(t)
	const fd = 9
	var fired atomic.Int32
	for i := 0; i < 2; i++ {
		if _, err := svc.AsyncWrite(fd, nil, func(api.Result[int]) { fired.Add(1) }); err != nil {
			t.Fatalf("AsyncWrite error: %v", err)
		}
	}
	d.MakeReady(fd, reactor.Write)
	svc.RunOne()
	if got := fired.Load(); got != 1 {
		t.Fatalf("after one readiness: %d completions, want exactly 1", got)
	}
	d.MakeReady(fd, reactor.Write)
	svc.Run()
	if got := fired.Load(); got != 2 {
		t.Fatalf("after second readiness: %d completions, want 2", got)
	}
}

func TestCancelBeforeFireDeliversExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	var calls atomic.Int32
	var got error
	h, err := svc.AsyncRead(3, nil, func(r api.Result[int]) {
		calls.Add(1)
		got = r.Err
	})
	if err != nil {
		t.Fatalf("AsyncRead error: %v", err)
	}
	if err := svc.Cancel(h); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	svc.Run()
	if calls.Load() != 1 {
		t.Fatalf("callback ran %d times, want exactly once", calls.Load())
	}
	if !errors.Is(got, api.ErrOperationCancelled) {
		t.Fatalf("result error = %v, want ErrOperationCancelled", got)
	}
	// A second cancel of a finished operation is a silent no-op.
	if err := svc.Cancel(h); err != nil {
		t.Fatalf("second Cancel error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("second cancel re-delivered the callback")
	}
}

func TestTimerFiresAfterDeadline(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Now()
	var fired atomic.Bool
	if _, err := svc.ScheduleTimer(dispatch.ClockSteady, 20*time.Millisecond, func(r api.Result[int]) {
		if r.Err != nil {
			t.Errorf("timer error: %v", r.Err)
		}
		fired.Store(true)
	}); err != nil {
		t.Fatalf("ScheduleTimer error: %v", err)
	}
	svc.Run()
	if !fired.Load() {
		t.Fatal("timer did not fire")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("timer fired after %v, before its deadline", elapsed)
	}
}

func TestTimerFiringOrder(t *testing.T) {
	svc, _ := newTestService(t)
	base := time.Now().Add(30 * time.Millisecond)
	var order []string
	schedule := func(name string, at time.Time) {
		if _, err := svc.ScheduleTimerAt(dispatch.ClockSteady, at, func(api.Result[int]) {
			order = append(order, name)
		}); err != nil {
			t.Fatalf("ScheduleTimerAt error: %v", err)
		}
	}
	schedule("late", base.Add(20*time.Millisecond))
	schedule("early", base)
	schedule("tie-a", base.Add(10*time.Millisecond))
	schedule("tie-b", base.Add(10*time.Millisecond))
	svc.Run()
	want := []string{"early", "tie-a", "tie-b", "late"}
	if len(order) != len(want) {
		t.Fatalf("fired %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("firing order %v, want %v", order, want)
		}
	}
}

func TestStopDrainsEveryPendingOperation(t *testing.T) {
	svc, _ := newTestService(t)

	type fireRecord struct {
		name string
		err  error
		at   time.Time
	}
	records := make(chan fireRecord, 2)

	// A read that will never become ready.
	if _, err := svc.AsyncRead(11, nil, func(r api.Result[int]) {
		records <- fireRecord{name: "read", err: r.Err, at: time.Now()}
	}); err != nil {
		t.Fatalf("AsyncRead error: %v", err)
	}
	deadline := time.Now().Add(50 * time.Millisecond)
	if _, err := svc.ScheduleTimerAt(dispatch.ClockSteady, deadline, func(r api.Result[int]) {
		records <- fireRecord{name: "timer", err: r.Err, at: time.Now()}
	}); err != nil {
		t.Fatalf("ScheduleTimerAt error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		svc.Run()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	svc.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Stop()")
	}

	first := <-records
	second := <-records
	if first.name != "read" {
		t.Fatalf("first drained completion = %q, want the read operation", first.name)
	}
	for _, rec := range []fireRecord{first, second} {
		if !errors.Is(rec.err, api.ErrServiceStopped) {
			t.Fatalf("%s completed with %v, want ErrServiceStopped", rec.name, rec.err)
		}
		if rec.at.After(deadline) {
			t.Fatalf("%s drained at %v, after the timer deadline", rec.name, rec.at)
		}
	}
}

func TestStopReleasesEveryRunner(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.AsyncRead(5, nil, func(api.Result[int]) {}); err != nil {
		t.Fatalf("AsyncRead error: %v", err)
	}
	pool := dispatch.NewWorkerPool(svc, 4)
	pool.Start()
	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not drain after Stop()")
	}
}

func TestRestartAllowsFurtherRuns(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Stop()
	if !svc.Stopped() {
		t.Fatal("Stopped() = false after Stop()")
	}
	if n := svc.Run(); n != 0 {
		t.Fatalf("Run() on stopped service = %d, want 0", n)
	}
	svc.Restart()
	var ran atomic.Bool
	svc.Post(func() { ran.Store(true) })
	svc.Run()
	if !ran.Load() {
		t.Fatal("handler did not run after Restart()")
	}
}

func TestDispatchRunsInlineInsideWorker(t *testing.T) {
	svc, _ := newTestService(t)
	var inlined atomic.Bool
	svc.Post(func() {
		ran := false
		svc.Dispatch(func() { ran = true })
		inlined.Store(ran)
	})
	svc.Run()
	if !inlined.Load() {
		t.Fatal("Dispatch from a worker did not run inline")
	}
}

func TestConcurrentRunnersShareTheQueue(t *testing.T) {
	svc, _ := newTestService(t)
	const handlers = 200
	var executed atomic.Int32
	for i := 0; i < handlers; i++ {
		svc.Post(func() { executed.Add(1) })
	}
	pool := dispatch.NewWorkerPool(svc, 8)
	pool.Start()
	pool.Wait()
	if got := executed.Load(); got != handlers {
		t.Fatalf("executed %d handlers, want %d (each exactly once)", got, handlers)
	}
}
