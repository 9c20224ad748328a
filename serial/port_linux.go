//go:build linux

// File: serial/port_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serial port adapter: a character device opened non-blocking whose
// reads and writes are issued into the dispatch core like any other
// descriptor operation.

package serial

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// Port is an open serial device.
type Port struct {
	svc *dispatch.Service
	fd  int
}

// Open opens the device (e.g. /dev/ttyS0) non-blocking and applies the
// line configuration.
func Open(svc *dispatch.Service, device string, o Options) (*Port, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, api.NewSystemError("open", err)
	}
	p := &Port{svc: svc, fd: fd}
	if err := p.SetOptions(o); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return p, nil
}

// Fd returns the underlying descriptor.
func (p *Port) Fd() int { return p.fd }

// SetOptions reconfigures the line.
func (p *Port) SetOptions(o Options) error {
	tio, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return api.NewSystemError("tcgetattr", err)
	}
	if err := applyOptions(tio, o); err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, tio); err != nil {
		return api.NewSystemError("tcsetattr", err)
	}
	return nil
}

// AsyncRead issues one read into buf. The completion payload is the
// byte count.
func (p *Port) AsyncRead(buf []byte, cb api.Completion) (api.Handle, error) {
	fd := p.fd
	return p.svc.AsyncRead(fd, func() (int, error) {
		n, err := unix.Read(fd, buf)
		if err != nil {
			return 0, err
		}
		return n, nil
	}, cb)
}

// AsyncWrite issues one write of buf. The completion payload is the
// byte count; partial writes are reported as such.
func (p *Port) AsyncWrite(buf []byte, cb api.Completion) (api.Handle, error) {
	fd := p.fd
	return p.svc.AsyncWrite(fd, func() (int, error) {
		n, err := unix.Write(fd, buf)
		if err != nil {
			return 0, err
		}
		return n, nil
	}, cb)
}

// SendBreak transmits a break condition.
func (p *Port) SendBreak() error {
	if err := unix.IoctlSetInt(p.fd, unix.TCSBRK, 0); err != nil {
		return api.NewSystemError("tcsendbreak", err)
	}
	return nil
}

// Close cancels every pending operation on the port and releases the
// descriptor. Pending handlers complete with ErrOperationCancelled.
func (p *Port) Close() error {
	p.svc.CancelDescriptor(p.fd)
	return unix.Close(p.fd)
}

// baudBits maps the numeric rate onto the termios speed constant.
var baudBits = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	2000000: unix.B2000000,
}

// applyOptions rewrites tio for raw non-canonical IO with the requested
// line parameters.
func applyOptions(tio *unix.Termios, o Options) error {
	speed, ok := baudBits[o.BaudRate]
	if !ok {
		return fmt.Errorf("serial: unsupported baud rate %d: %w", o.BaudRate, api.ErrRegistration)
	}

	// Raw mode: no line editing, no translation, no echo.
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag |= unix.CLOCAL | unix.CREAD

	tio.Cflag &^= unix.CSIZE
	switch o.CharSize {
	case 5:
		tio.Cflag |= unix.CS5
	case 6:
		tio.Cflag |= unix.CS6
	case 7:
		tio.Cflag |= unix.CS7
	case 8, 0:
		tio.Cflag |= unix.CS8
	default:
		return fmt.Errorf("serial: unsupported character size %d: %w", o.CharSize, api.ErrRegistration)
	}

	switch o.Parity {
	case ParityNone:
		tio.Cflag &^= unix.PARENB | unix.PARODD
	case ParityEven:
		tio.Cflag |= unix.PARENB
		tio.Cflag &^= unix.PARODD
	case ParityOdd:
		tio.Cflag |= unix.PARENB | unix.PARODD
	}

	if o.StopBits == StopBitsTwo {
		tio.Cflag |= unix.CSTOPB
	} else {
		tio.Cflag &^= unix.CSTOPB
	}

	switch o.FlowControl {
	case FlowControlSoftware:
		tio.Iflag |= unix.IXON | unix.IXOFF
	case FlowControlHardware:
		tio.Cflag |= unix.CRTSCTS
	}

	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= speed
	tio.Ispeed = speed
	tio.Ospeed = speed

	// One byte at a time, no inter-byte timer; readiness is the
	// reactor's job.
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	return nil
}
