//go:build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Level-triggered epoll demultiplexer. Interest per direction mirrors
// "pending list non-empty": a descriptor is re-armed under the table lock
// whenever an operation is queued or dispatched, so a descriptor with
// work left reports ready again on the next wait and no list is starved.
// One always-registered eventfd serves as the wake descriptor.

package reactor

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	queue "github.com/eapache/queue/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
)

// registration tracks one watched descriptor.
type registration struct {
	fd      int
	pending [numDirections]*queue.Queue[Operation]
	armed   uint32 // epoll event mask currently installed
}

func newRegistration(fd int) *registration {
	return &registration{
		fd:      fd,
		pending: [numDirections]*queue.Queue[Operation]{queue.New[Operation](), queue.New[Operation]()},
	}
}

// wantMask derives the interest set from the non-empty pending lists.
func (r *registration) wantMask() uint32 {
	var mask uint32
	if r.pending[Read].Length() > 0 {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if r.pending[Write].Length() > 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// EpollDemux implements Demux on Linux.
type EpollDemux struct {
	epfd   int
	wakeFd int

	mu   sync.Mutex
	regs map[int]*registration

	events []unix.EpollEvent
	log    *zap.Logger
}

// NewDemux creates the platform demultiplexer. maxEvents bounds how many
// readiness events one wait may report.
func NewDemux(maxEvents int, log *zap.Logger) (Demux, error) {
	if maxEvents <= 0 {
		maxEvents = 128
	}
	if log == nil {
		log = zap.NewNop()
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.NewSystemError("epoll_create1", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, api.NewSystemError("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		unix.Close(wakeFd)
		unix.Close(epfd)
		return nil, api.NewSystemError("epoll_ctl", err)
	}
	return &EpollDemux{
		epfd:   epfd,
		wakeFd: wakeFd,
		regs:   make(map[int]*registration),
		events: make([]unix.EpollEvent, maxEvents),
		log:    log,
	}, nil
}

// Register adds fd to the watch table with an empty interest set.
func (d *EpollDemux) Register(fd int) error {
	if fd < 0 {
		return api.ErrRegistration
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureLocked(fd)
}

func (d *EpollDemux) ensureLocked(fd int) error {
	if _, ok := d.regs[fd]; ok {
		return nil
	}
	ev := unix.EpollEvent{Events: 0, Fd: int32(fd)}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return api.NewSystemError("epoll_ctl", errors.Join(api.ErrRegistration, err))
	}
	d.regs[fd] = newRegistration(fd)
	return nil
}

// Queue appends op and re-arms the descriptor's interest set.
func (d *EpollDemux) Queue(fd int, dir Direction, op Operation) error {
	if fd < 0 || dir < Read || dir >= numDirections {
		return api.ErrRegistration
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureLocked(fd); err != nil {
		return err
	}
	reg := d.regs[fd]
	reg.pending[dir].Add(op)
	return d.rearmLocked(reg)
}

func (d *EpollDemux) rearmLocked(reg *registration) error {
	want := reg.wantMask()
	if want == reg.armed {
		return nil
	}
	ev := unix.EpollEvent{Events: want, Fd: int32(reg.fd)}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_MOD, reg.fd, &ev); err != nil {
		return api.NewSystemError("epoll_ctl", err)
	}
	reg.armed = want
	return nil
}

// Remove deletes op from the pending list without completing it.
func (d *EpollDemux) Remove(fd int, dir Direction, op Operation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, ok := d.regs[fd]
	if !ok {
		return false
	}
	removed := false
	q := reg.pending[dir]
	for n := q.Length(); n > 0; n-- {
		cur := q.Remove()
		if cur == op && !removed {
			removed = true
			continue
		}
		q.Add(cur)
	}
	if removed {
		_ = d.rearmLocked(reg)
		d.dropIfIdleLocked(reg)
	}
	return removed
}

func (d *EpollDemux) dropIfIdleLocked(reg *registration) {
	if reg.pending[Read].Length() == 0 && reg.pending[Write].Length() == 0 {
		_ = unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, reg.fd, nil)
		delete(d.regs, reg.fd)
	}
}

// dispatched carries one finished operation out of the locked section so
// Complete never runs under the table lock.
type dispatched struct {
	op  Operation
	n   int
	err error
}

// PollOnce performs one bounded wait and dispatches at most one
// operation per ready descriptor per direction.
func (d *EpollDemux) PollOnce(timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}
	n, err := unix.EpollWait(d.epfd, d.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, api.NewSystemError("epoll_wait", err)
	}

	var done []dispatched
	for i := 0; i < n; i++ {
		ev := d.events[i]
		fd := int(ev.Fd)
		if fd == d.wakeFd {
			d.drainWake()
			continue
		}
		done = d.collect(fd, ev.Events, done)
	}
	for _, c := range done {
		c.op.Complete(c.n, c.err)
	}
	return len(done), nil
}

// collect pops one ready operation per direction for fd, running its
// non-blocking attempt in place. Transient results leave the operation
// at the head of its list; a readiness report against an empty list is
// a spurious wake and a no-op.
func (d *EpollDemux) collect(fd int, events uint32, done []dispatched) []dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, ok := d.regs[fd]
	if !ok {
		return done
	}
	hangup := events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
	for _, dir := range [...]Direction{Read, Write} {
		ready := hangup
		switch dir {
		case Read:
			ready = ready || events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0
		case Write:
			ready = ready || events&unix.EPOLLOUT != 0
		}
		if !ready || reg.pending[dir].Length() == 0 {
			continue
		}
		op := reg.pending[dir].Peek()
		n, err := op.Attempt()
		if isTransient(err) {
			continue
		}
		reg.pending[dir].Remove()
		done = append(done, dispatched{op: op, n: n, err: err})
	}
	_ = d.rearmLocked(reg)
	d.dropIfIdleLocked(reg)
	return done
}

func (d *EpollDemux) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(d.wakeFd, buf[:]); err != nil {
			return
		}
	}
}

// CancelFd drains both pending lists for fd, completing each operation
// with err, and drops the registration.
func (d *EpollDemux) CancelFd(fd int, err error) int {
	d.mu.Lock()
	reg, ok := d.regs[fd]
	var cancelled []Operation
	if ok {
		for _, dir := range [...]Direction{Read, Write} {
			for reg.pending[dir].Length() > 0 {
				cancelled = append(cancelled, reg.pending[dir].Remove())
			}
		}
		_ = unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(d.regs, fd)
	}
	d.mu.Unlock()
	for _, op := range cancelled {
		op.Complete(0, err)
	}
	return len(cancelled)
}

// CancelAll drains every registration. Used by service stop.
func (d *EpollDemux) CancelAll(err error) int {
	d.mu.Lock()
	var cancelled []Operation
	for fd, reg := range d.regs {
		for _, dir := range [...]Direction{Read, Write} {
			for reg.pending[dir].Length() > 0 {
				cancelled = append(cancelled, reg.pending[dir].Remove())
			}
		}
		_ = unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(d.regs, fd)
	}
	d.mu.Unlock()
	for _, op := range cancelled {
		op.Complete(0, err)
	}
	if len(cancelled) > 0 {
		d.log.Debug("reactor drained", zap.Int("operations", len(cancelled)))
	}
	return len(cancelled)
}

// Wake interrupts a concurrent PollOnce.
func (d *EpollDemux) Wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(d.wakeFd, buf[:])
}

// Pending returns the number of queued operations.
func (d *EpollDemux) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, reg := range d.regs {
		total += reg.pending[Read].Length() + reg.pending[Write].Length()
	}
	return total
}

// Close releases the epoll and wake descriptors.
func (d *EpollDemux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := unix.Close(d.wakeFd); err != nil {
		return err
	}
	return unix.Close(d.epfd)
}

// isTransient reports whether err is a would-block condition that keeps
// the operation queued instead of completing it.
func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, api.ErrWouldBlock)
}
