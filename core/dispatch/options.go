// File: core/dispatch/options.go
// Package dispatch defines functional options for service construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"go.uber.org/zap"

	"github.com/momentics/hioload-aio/reactor"
)

// Option customizes service initialization.
type Option func(*config)

type config struct {
	log       *zap.Logger
	maxEvents int
	demux     reactor.Demux
}

func defaultConfig() config {
	return config{
		log:       zap.NewNop(),
		maxEvents: 128,
	}
}

// WithLogger attaches a structured logger for lifecycle and drain events.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMaxEvents bounds how many readiness events one reactor wait may
// report.
func WithMaxEvents(n int) Option {
	return func(c *config) {
		c.maxEvents = n
	}
}

// WithDemux substitutes the readiness engine. Intended for tests and
// platforms with a custom notification primitive.
func WithDemux(d reactor.Demux) Option {
	return func(c *config) {
		c.demux = d
	}
}
