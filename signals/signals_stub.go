//go:build !linux

// File: signals/signals_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without a supported reactor.

package signals

import (
	"os"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/core/dispatch"
)

// Set is unsupported on this platform.
type Set struct{}

// New reports the platform as unsupported.
func New(svc *dispatch.Service, sigs ...os.Signal) (*Set, error) {
	return nil, api.ErrRegistration
}

func (s *Set) Add(sigs ...os.Signal) error               { return api.ErrRegistration }
func (s *Set) Remove(sigs ...os.Signal) error            { return api.ErrRegistration }
func (s *Set) Wait(cb api.Completion) (api.Handle, error) { return api.InvalidHandle, api.ErrRegistration }
func (s *Set) Cancel() error                             { return nil }
func (s *Set) Close() error                              { return nil }
