//go:build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without a supported readiness primitive yet.

package reactor

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-aio/api"
)

type stubDemux struct{}

// NewDemux reports the platform as unsupported.
func NewDemux(maxEvents int, log *zap.Logger) (Demux, error) {
	return nil, api.ErrRegistration
}

func (stubDemux) Register(fd int) error                             { return api.ErrRegistration }
func (stubDemux) Queue(fd int, dir Direction, op Operation) error   { return api.ErrRegistration }
func (stubDemux) Remove(fd int, dir Direction, op Operation) bool   { return false }
func (stubDemux) PollOnce(timeout time.Duration) (int, error)       { return 0, nil }
func (stubDemux) CancelFd(fd int, err error) int                    { return 0 }
func (stubDemux) CancelAll(err error) int                           { return 0 }
func (stubDemux) Wake()                                             {}
func (stubDemux) Pending() int                                      { return 0 }
func (stubDemux) Close() error                                      { return nil }
