//go:build !linux

// File: serial/port_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without a supported reactor.

package serial

import (
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// Port is unsupported on this platform.
type Port struct{}

// Open reports the platform as unsupported.
func Open(svc *dispatch.Service, device string, o Options) (*Port, error) {
	return nil, api.ErrRegistration
}

func (p *Port) Fd() int                 { return -1 }
func (p *Port) SetOptions(o Options) error { return api.ErrRegistration }
func (p *Port) AsyncRead(buf []byte, cb api.Completion) (api.Handle, error) {
	return api.InvalidHandle, api.ErrRegistration
}
func (p *Port) AsyncWrite(buf []byte, cb api.Completion) (api.Handle, error) {
	return api.InvalidHandle, api.ErrRegistration
}
func (p *Port) SendBreak() error { return api.ErrRegistration }
func (p *Port) Close() error     { return nil }
