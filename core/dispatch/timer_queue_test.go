// File: core/dispatch/timer_queue_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"testing"
	"time"
)

func TestTimerQueueOrdersByDeadlineThenInsertion(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	mk := func() *operation { return &operation{kind: opTimer, fd: -1} }

	late := mk()
	early := mk()
	tieA := mk()
	tieB := mk()
	q.schedule(ClockSteady, now.Add(30*time.Millisecond), late)
	q.schedule(ClockSteady, now.Add(10*time.Millisecond), early)
	q.schedule(ClockSteady, now.Add(20*time.Millisecond), tieA)
	q.schedule(ClockSteady, now.Add(20*time.Millisecond), tieB)

	due := q.expire(now.Add(time.Second))
	want := []*operation{early, tieA, tieB, late}
	if len(due) != len(want) {
		t.Fatalf("expired %d entries, want %d", len(due), len(want))
	}
	for i := range want {
		if due[i] != want[i] {
			t.Fatalf("expiry order wrong at %d", i)
		}
	}
}

func TestTimerQueueExpireHonorsDeadline(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	dueOp := &operation{kind: opTimer, fd: -1}
	futureOp := &operation{kind: opTimer, fd: -1}
	q.schedule(ClockSteady, now.Add(5*time.Millisecond), dueOp)
	q.schedule(ClockSteady, now.Add(time.Hour), futureOp)

	due := q.expire(now.Add(10 * time.Millisecond))
	if len(due) != 1 || due[0] != dueOp {
		t.Fatalf("expire returned %d entries, want only the due one", len(due))
	}
	if q.pending() != 1 {
		t.Fatalf("pending() = %d, want 1", q.pending())
	}
}

func TestTimerQueueScheduleReportsNewEarliest(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	if !q.schedule(ClockSteady, now.Add(time.Hour), &operation{kind: opTimer}) {
		t.Fatal("first deadline must be the earliest")
	}
	if q.schedule(ClockSteady, now.Add(2*time.Hour), &operation{kind: opTimer}) {
		t.Fatal("later deadline reported as new earliest")
	}
	if !q.schedule(ClockSteady, now.Add(time.Minute), &operation{kind: opTimer}) {
		t.Fatal("earlier deadline not reported as new earliest")
	}
}

func TestTimerQueueCancelRemovesPendingEntry(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	op := &operation{kind: opTimer, fd: -1}
	q.schedule(ClockSteady, now.Add(time.Hour), op)
	if !q.cancel(op) {
		t.Fatal("cancel of a pending entry returned false")
	}
	if q.cancel(op) {
		t.Fatal("second cancel must be a no-op")
	}
	if q.pending() != 0 {
		t.Fatalf("pending() = %d after cancel, want 0", q.pending())
	}
}

func TestTimerQueueNextDelayClampsToZero(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	q.schedule(ClockSteady, now.Add(-time.Second), &operation{kind: opTimer})
	d, ok := q.nextDelay(now)
	if !ok {
		t.Fatal("nextDelay reported no pending deadline")
	}
	if d != 0 {
		t.Fatalf("nextDelay = %v for an overdue timer, want 0", d)
	}
}

func TestTimerQueueKeepsClockCategoriesApart(t *testing.T) {
	q := newTimerQueue()
	now := time.Now()
	steady := &operation{kind: opTimer}
	system := &operation{kind: opTimer}
	q.schedule(ClockSteady, now.Add(10*time.Millisecond), steady)
	q.schedule(ClockSystem, now.Add(20*time.Millisecond), system)
	if q.pending() != 2 {
		t.Fatalf("pending() = %d, want 2", q.pending())
	}
	due := q.expire(now.Add(time.Second))
	if len(due) != 2 {
		t.Fatalf("expired %d entries, want both categories", len(due))
	}
	if _, ok := q.nextDelay(now); ok {
		t.Fatal("nextDelay reported a deadline on an empty queue")
	}
}
