// File: core/dispatch/timer_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deadline bookkeeping for the dispatch service. Two heaps, one per
// clock category: steady deadlines compare on the monotonic reading and
// are immune to wall-clock adjustment, system deadlines are stripped of
// the monotonic reading so every expiry scan re-evaluates them against
// the adjusted wall clock. Equal deadlines fire in insertion order.

package dispatch

import (
	"container/heap"
	"sync"
	"time"
)

// Clock selects the timer category for a scheduled deadline.
type Clock int

const (
	// ClockSteady measures deadlines on the monotonic clock.
	ClockSteady Clock = iota
	// ClockSystem measures deadlines on the adjustable wall clock.
	ClockSystem

	numClocks
)

// timerEntry associates one absolute deadline with its operation.
type timerEntry struct {
	deadline time.Time
	seq      uint64
	clock    Clock
	op       *operation
	index    int // heap slot, -1 once removed
}

// timerHeap orders entries by (deadline, insertion sequence).
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// timerQueue maintains both timer categories behind one lock.
type timerQueue struct {
	mu    sync.Mutex
	heaps [numClocks]timerHeap
	seq   uint64
}

func newTimerQueue() *timerQueue {
	return &timerQueue{}
}

// schedule inserts the deadline and reports whether it became the
// earliest pending one, in which case a blocked reactor wait must be
// interrupted to honor the shorter timeout.
func (q *timerQueue) schedule(clock Clock, deadline time.Time, op *operation) bool {
	if clock == ClockSystem {
		// Round strips the monotonic reading; comparisons fall back to
		// wall-clock time and track clock adjustment.
		deadline = deadline.Round(0)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	e := &timerEntry{deadline: deadline, seq: q.seq, clock: clock, op: op}
	op.timer = e
	heap.Push(&q.heaps[clock], e)
	return e.index == 0
}

// cancel removes the entry if it has not fired yet. Reports false once
// the entry already left the queue (fired or cancelled).
func (q *timerQueue) cancel(op *operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := op.timer
	if e == nil || e.index < 0 {
		return false
	}
	heap.Remove(&q.heaps[e.clock], e.index)
	return true
}

// nextDelay returns the time remaining until the earliest pending
// deadline. ok is false when no timer is scheduled.
func (q *timerQueue) nextDelay(now time.Time) (d time.Duration, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for clock := Clock(0); clock < numClocks; clock++ {
		h := q.heaps[clock]
		if len(h) == 0 {
			continue
		}
		ref := now
		if clock == ClockSystem {
			ref = now.Round(0)
		}
		left := h[0].deadline.Sub(ref)
		if !ok || left < d {
			d, ok = left, true
		}
	}
	if ok && d < 0 {
		d = 0
	}
	return d, ok
}

// expire removes every entry whose deadline has been reached and returns
// the operations in firing order per category.
func (q *timerQueue) expire(now time.Time) []*operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []*operation
	for clock := Clock(0); clock < numClocks; clock++ {
		ref := now
		if clock == ClockSystem {
			ref = now.Round(0)
		}
		h := &q.heaps[clock]
		for h.Len() > 0 && !(*h)[0].deadline.After(ref) {
			e := heap.Pop(h).(*timerEntry)
			due = append(due, e.op)
		}
	}
	return due
}

// drain removes every pending entry. Used by service stop.
func (q *timerQueue) drain() []*operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var all []*operation
	for clock := Clock(0); clock < numClocks; clock++ {
		h := &q.heaps[clock]
		for h.Len() > 0 {
			e := heap.Pop(h).(*timerEntry)
			all = append(all, e.op)
		}
	}
	return all
}

// pending reports the number of scheduled deadlines.
func (q *timerQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heaps[ClockSteady]) + len(q.heaps[ClockSystem])
}
