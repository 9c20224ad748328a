//go:build linux

// File: transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thin socket adapters over the dispatch core. A Socket is a
// non-blocking descriptor plus issue helpers; every attempt is a raw
// syscall retried by the reactor on would-block. No protocol semantics
// live here.

package transport

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// FromCompletion is the receive-from callback carrying the peer address.
type FromCompletion func(n int, from unix.Sockaddr, err error)

// Socket wraps one non-blocking descriptor.
type Socket struct {
	svc    *dispatch.Service
	fd     int
	closed atomic.Bool
}

// newSocket creates a descriptor of the given type. SOCK_NONBLOCK and
// SOCK_CLOEXEC are always applied.
func newSocket(svc *dispatch.Service, family, typ, proto int) (*Socket, error) {
	fd, err := unix.Socket(family, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, api.NewSystemError("socket", err)
	}
	return &Socket{svc: svc, fd: fd}, nil
}

// NewStream creates a stream (TCP for IP families) socket.
func NewStream(svc *dispatch.Service, family int) (*Socket, error) {
	proto := 0
	if family == unix.AF_INET || family == unix.AF_INET6 {
		proto = unix.IPPROTO_TCP
	}
	return newSocket(svc, family, unix.SOCK_STREAM, proto)
}

// NewDatagram creates a datagram (UDP for IP families) socket.
func NewDatagram(svc *dispatch.Service, family int) (*Socket, error) {
	proto := 0
	if family == unix.AF_INET || family == unix.AF_INET6 {
		proto = unix.IPPROTO_UDP
	}
	return newSocket(svc, family, unix.SOCK_DGRAM, proto)
}

// NewRaw creates a raw socket for the given protocol. Requires
// privileges on most systems.
func NewRaw(svc *dispatch.Service, family, proto int) (*Socket, error) {
	return newSocket(svc, family, unix.SOCK_RAW, proto)
}

// NewSeqPacket creates a sequenced-packet socket (local domain).
func NewSeqPacket(svc *dispatch.Service, family int) (*Socket, error) {
	return newSocket(svc, family, unix.SOCK_SEQPACKET, 0)
}

// FromFd adopts an existing descriptor, switching it non-blocking.
func FromFd(svc *dispatch.Service, fd int) (*Socket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, api.NewSystemError("fcntl", err)
	}
	return &Socket{svc: svc, fd: fd}, nil
}

// Pair creates a connected socket pair of the given type in the local
// domain. Handy for tests and in-process plumbing.
func Pair(svc *dispatch.Service, typ int) (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, api.NewSystemError("socketpair", err)
	}
	return &Socket{svc: svc, fd: fds[0]}, &Socket{svc: svc, fd: fds[1]}, nil
}

// Fd returns the underlying descriptor.
func (s *Socket) Fd() int { return s.fd }

// SetReuseAddr toggles SO_REUSEADDR.
func (s *Socket) SetReuseAddr(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, v); err != nil {
		return api.NewSystemError("setsockopt", err)
	}
	return nil
}

// Bind binds the socket to the endpoint.
func (s *Socket) Bind(ep Endpoint) error {
	if err := unix.Bind(s.fd, ep.Addr); err != nil {
		return api.NewSystemError("bind", err)
	}
	return nil
}

// Listen switches a stream or seq-packet socket into listening state.
func (s *Socket) Listen(backlog int) error {
	if err := unix.Listen(s.fd, backlog); err != nil {
		return api.NewSystemError("listen", err)
	}
	return nil
}

// LocalAddr returns the bound address.
func (s *Socket) LocalAddr() (unix.Sockaddr, error) {
	return unix.Getsockname(s.fd)
}

// AsyncAccept waits for an inbound connection. The completion payload
// is the accepted descriptor, already non-blocking; adopt it with
// FromFd.
func (s *Socket) AsyncAccept(cb api.Completion) (api.Handle, error) {
	fd := s.fd
	return s.svc.AsyncRead(fd, func() (int, error) {
		nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			return 0, err
		}
		return nfd, nil
	}, cb)
}

// AsyncConnect starts a connection to the endpoint. An immediately
// established connection completes through the service queue like any
// other operation.
func (s *Socket) AsyncConnect(ep Endpoint, cb api.Completion) (api.Handle, error) {
	fd := s.fd
	err := unix.Connect(fd, ep.Addr)
	switch err {
	case nil, unix.EISCONN:
		s.svc.Post(func() { cb(api.Result[int]{}) })
		return api.InvalidHandle, nil
	case unix.EINPROGRESS, unix.EAGAIN:
		// Writability reports the outcome; SO_ERROR carries it.
		return s.svc.AsyncWrite(fd, func() (int, error) {
			soerr, gerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
			if gerr != nil {
				return 0, api.NewSystemError("getsockopt", gerr)
			}
			if soerr != 0 {
				return 0, api.NewSystemError("connect", unix.Errno(soerr))
			}
			return 0, nil
		}, cb)
	default:
		return api.InvalidHandle, api.NewSystemError("connect", err)
	}
}

// AsyncRead issues one read into buf; the completion payload is the
// byte count (zero on EOF).
func (s *Socket) AsyncRead(buf []byte, cb api.Completion) (api.Handle, error) {
	fd := s.fd
	return s.svc.AsyncRead(fd, func() (int, error) {
		n, err := unix.Read(fd, buf)
		if err != nil {
			return 0, err
		}
		return n, nil
	}, cb)
}

// AsyncWrite issues one write of buf; the completion payload is the
// byte count, which may be short.
func (s *Socket) AsyncWrite(buf []byte, cb api.Completion) (api.Handle, error) {
	fd := s.fd
	return s.svc.AsyncWrite(fd, func() (int, error) {
		n, err := unix.Write(fd, buf)
		if err != nil {
			return 0, err
		}
		return n, nil
	}, cb)
}

// AsyncReceiveFrom issues one datagram receive; the callback carries
// the peer address alongside the byte count.
func (s *Socket) AsyncReceiveFrom(buf []byte, cb FromCompletion) (api.Handle, error) {
	fd := s.fd
	var from unix.Sockaddr
	return s.svc.AsyncRead(fd, func() (int, error) {
		n, sa, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			return 0, err
		}
		from = sa
		return n, nil
	}, func(r api.Result[int]) {
		cb(r.Value, from, r.Err)
	})
}

// AsyncSendTo issues one datagram send to the endpoint.
func (s *Socket) AsyncSendTo(buf []byte, ep Endpoint, cb api.Completion) (api.Handle, error) {
	fd := s.fd
	return s.svc.AsyncWrite(fd, func() (int, error) {
		if err := unix.Sendto(fd, buf, 0, ep.Addr); err != nil {
			return 0, err
		}
		return len(buf), nil
	}, cb)
}

// Cancel aborts every pending operation on the socket; each completes
// with ErrOperationCancelled.
func (s *Socket) Cancel() int {
	return s.svc.CancelDescriptor(s.fd)
}

// Close cancels pending operations and releases the descriptor.
// Idempotent.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.svc.CancelDescriptor(s.fd)
	return unix.Close(s.fd)
}
