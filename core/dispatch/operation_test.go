// File: core/dispatch/operation_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/fake"
)

func newInternalService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(WithDemux(fake.NewDemux()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return svc
}

func TestOperationCompletesExactlyOnce(t *testing.T) {
	svc := newInternalService(t)
	var calls atomic.Int32
	var got api.Result[int]
	op := &operation{svc: svc, kind: opRead, fd: 1, complete: func(r api.Result[int]) {
		calls.Add(1)
		got = r
	}}
	svc.reg.allocate(op)
	svc.outstanding.Add(1)

	op.Complete(5, nil)
	op.Complete(7, errors.New("second result")) // loses the state race

	svc.Run()
	if calls.Load() != 1 {
		t.Fatalf("completion ran %d times, want exactly once", calls.Load())
	}
	if got.Value != 5 || got.Err != nil {
		t.Fatalf("delivered result = %+v, want the first Complete", got)
	}
}

func TestCancelledMarkSubstitutesResultOnDelivery(t *testing.T) {
	svc := newInternalService(t)
	var got api.Result[int]
	op := &operation{svc: svc, kind: opRead, fd: 1, complete: func(r api.Result[int]) { got = r }}
	svc.reg.allocate(op)
	svc.outstanding.Add(1)

	// Already in the completion queue with a success result when the
	// cancellation lands: the callback still runs once, but carries the
	// cancellation instead of the stale success.
	op.Complete(42, nil)
	op.markCancelled()

	svc.Run()
	if !errors.Is(got.Err, api.ErrOperationCancelled) {
		t.Fatalf("delivered error = %v, want ErrOperationCancelled", got.Err)
	}
	if got.Value != 0 {
		t.Fatalf("cancelled delivery kept payload %d, want 0", got.Value)
	}
}

func TestRegistryReleasesHandleAfterDelivery(t *testing.T) {
	svc := newInternalService(t)
	h, err := svc.AsyncRead(2, nil, func(api.Result[int]) {})
	if err != nil {
		t.Fatalf("AsyncRead error: %v", err)
	}
	if _, ok := svc.reg.lookup(h); !ok {
		t.Fatal("pending handle not tracked")
	}
	svc.Cancel(h)
	svc.Run()
	if _, ok := svc.reg.lookup(h); ok {
		t.Fatal("handle still tracked after delivery")
	}
}
