//go:build linux

// File: signals/signals_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Signal demultiplexer: OS signal delivery converted into descriptor
// readiness consumed by the reactor. Deliveries are forwarded into a
// non-blocking self-pipe; a full pipe drops the write, coalescing
// multiple deliveries of the same signal between two checks, which
// matches the unreliable-queue nature of signals.

package signals

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// Set registers interest in a group of signal numbers and delivers them
// through the owning service's completion path.
type Set struct {
	svc *dispatch.Service

	mu   sync.Mutex
	sigs []os.Signal
	ch   chan os.Signal
	rfd  int
	wfd  int
	done chan struct{}
}

// New creates a signal set watching sigs.
func New(svc *dispatch.Service, sigs ...os.Signal) (*Set, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, api.NewSystemError("pipe2", err)
	}
	s := &Set{
		svc:  svc,
		ch:   make(chan os.Signal, 8),
		rfd:  p[0],
		wfd:  p[1],
		done: make(chan struct{}),
	}
	go s.forward()
	if len(sigs) > 0 {
		if err := s.Add(sigs...); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// forward turns each delivery into one byte on the self-pipe. A full
// pipe coalesces the delivery.
func (s *Set) forward() {
	for {
		select {
		case sig := <-s.ch:
			num, ok := sig.(unix.Signal)
			if !ok {
				continue
			}
			buf := [1]byte{byte(num)}
			_, _ = unix.Write(s.wfd, buf[:])
		case <-s.done:
			return
		}
	}
}

// Add extends the watched set.
func (s *Set) Add(sigs ...os.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sigs...)
	signal.Notify(s.ch, s.sigs...)
	return nil
}

// Remove narrows the watched set. A signal not in the set is ignored.
func (s *Set) Remove(sigs ...os.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := s.sigs[:0]
	for _, have := range s.sigs {
		drop := false
		for _, sig := range sigs {
			if have == sig {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, have)
		}
	}
	s.sigs = keep
	signal.Stop(s.ch)
	if len(s.sigs) > 0 {
		signal.Notify(s.ch, s.sigs...)
	}
	return nil
}

// Wait issues one asynchronous wait. The completion payload is the
// number of the signal that fired since the last check.
func (s *Set) Wait(cb api.Completion) (api.Handle, error) {
	return s.svc.AsyncRead(s.rfd, s.readOne, cb)
}

// readOne consumes one coalesced delivery from the self-pipe.
func (s *Set) readOne() (int, error) {
	var buf [1]byte
	n, err := unix.Read(s.rfd, buf[:])
	if err != nil {
		return 0, err // EAGAIN keeps the wait queued
	}
	if n == 0 {
		return 0, api.ErrWouldBlock
	}
	return int(buf[0]), nil
}

// Cancel aborts every pending wait on this set; each completes with
// ErrOperationCancelled.
func (s *Set) Cancel() error {
	s.svc.CancelDescriptor(s.rfd)
	return nil
}

// Close cancels pending waits, stops forwarding and releases the pipe.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
	}
	signal.Stop(s.ch)
	close(s.done)
	s.svc.CancelDescriptor(s.rfd)
	unix.Close(s.wfd)
	return unix.Close(s.rfd)
}
