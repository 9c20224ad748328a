// File: fake/demux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-memory readiness engine for tests: readiness is injected with
// MakeReady instead of arriving from the OS, everything else follows
// the reactor contract, including one-dispatch-per-readiness and the
// interruptible wait.

package fake

import (
	"errors"
	"sync"
	"time"

	queue "github.com/eapache/queue/v2"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/reactor"
)

type readiness struct {
	fd  int
	dir reactor.Direction
}

// Demux implements reactor.Demux without any OS resources.
type Demux struct {
	mu      sync.Mutex
	regs    map[int]*[2]*queue.Queue[reactor.Operation]
	signals chan readiness
	wake    chan struct{}
	closed  bool
}

// NewDemux creates the in-memory engine.
func NewDemux() *Demux {
	return &Demux{
		regs:    make(map[int]*[2]*queue.Queue[reactor.Operation]),
		signals: make(chan readiness, 64),
		wake:    make(chan struct{}, 1),
	}
}

// MakeReady injects one readiness notification for fd in the given
// direction, as the OS would.
func (d *Demux) MakeReady(fd int, dir reactor.Direction) {
	d.signals <- readiness{fd: fd, dir: dir}
}

// Register adds fd to the table.
func (d *Demux) Register(fd int) error {
	if fd < 0 {
		return api.ErrRegistration
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureLocked(fd)
	return nil
}

func (d *Demux) ensureLocked(fd int) *[2]*queue.Queue[reactor.Operation] {
	reg, ok := d.regs[fd]
	if !ok {
		reg = &[2]*queue.Queue[reactor.Operation]{queue.New[reactor.Operation](), queue.New[reactor.Operation]()}
		d.regs[fd] = reg
	}
	return reg
}

// Queue appends op to the pending list.
func (d *Demux) Queue(fd int, dir reactor.Direction, op reactor.Operation) error {
	if fd < 0 {
		return api.ErrRegistration
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureLocked(fd)[dir].Add(op)
	return nil
}

// Remove deletes op without completing it.
func (d *Demux) Remove(fd int, dir reactor.Direction, op reactor.Operation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, ok := d.regs[fd]
	if !ok {
		return false
	}
	q := reg[dir]
	removed := false
	for n := q.Length(); n > 0; n-- {
		cur := q.Remove()
		if cur == op && !removed {
			removed = true
			continue
		}
		q.Add(cur)
	}
	return removed
}

// PollOnce waits for one injected readiness, the wake channel, or the
// timeout, and dispatches at most one operation for the ready
// direction. Readiness against an empty list is a spurious wake.
func (d *Demux) PollOnce(timeout time.Duration) (int, error) {
	// Pending readiness wins over an elapsed timeout.
	select {
	case r := <-d.signals:
		return d.dispatch(r), nil
	default:
	}
	var timer <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case r := <-d.signals:
		return d.dispatch(r), nil
	case <-d.wake:
		return 0, nil
	case <-timer:
		return 0, nil
	}
}

func (d *Demux) dispatch(r readiness) int {
	d.mu.Lock()
	reg, ok := d.regs[r.fd]
	if !ok || reg[r.dir].Length() == 0 {
		d.mu.Unlock()
		return 0
	}
	op := reg[r.dir].Peek()
	n, err := op.Attempt()
	if errors.Is(err, api.ErrWouldBlock) {
		d.mu.Unlock()
		return 0
	}
	reg[r.dir].Remove()
	d.mu.Unlock()
	op.Complete(n, err)
	return 1
}

// CancelFd drains both lists for fd, completing with err.
func (d *Demux) CancelFd(fd int, err error) int {
	d.mu.Lock()
	reg, ok := d.regs[fd]
	var ops []reactor.Operation
	if ok {
		for _, dir := range [...]reactor.Direction{reactor.Read, reactor.Write} {
			for reg[dir].Length() > 0 {
				ops = append(ops, reg[dir].Remove())
			}
		}
		delete(d.regs, fd)
	}
	d.mu.Unlock()
	for _, op := range ops {
		op.Complete(0, err)
	}
	return len(ops)
}

// CancelAll drains every registration, completing with err.
func (d *Demux) CancelAll(err error) int {
	d.mu.Lock()
	var ops []reactor.Operation
	for fd, reg := range d.regs {
		for _, dir := range [...]reactor.Direction{reactor.Read, reactor.Write} {
			for reg[dir].Length() > 0 {
				ops = append(ops, reg[dir].Remove())
			}
		}
		delete(d.regs, fd)
	}
	d.mu.Unlock()
	for _, op := range ops {
		op.Complete(0, err)
	}
	return len(ops)
}

// Wake interrupts a concurrent PollOnce.
func (d *Demux) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued operations.
func (d *Demux) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, reg := range d.regs {
		total += reg[reactor.Read].Length() + reg[reactor.Write].Length()
	}
	return total
}

// Close marks the engine closed.
func (d *Demux) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}
