// File: control/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime introspection for the dispatch core: a concurrent metrics
// registry fed by service counters and named debug probes for state
// dumps.

package control

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsRegistry holds point-in-time counters under a read-write lock.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{metrics: make(map[string]int64)}
}

// Set records one counter value.
func (mr *MetricsRegistry) Set(key string, value int64) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// SetAll records a batch of counters, e.g. a service Stats() snapshot.
func (mr *MetricsRegistry) SetAll(values map[string]int64) {
	mr.mu.Lock()
	for k, v := range values {
		mr.metrics[k] = v
	}
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (mr *MetricsRegistry) Snapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// DebugProbes holds named probe functions for internal inspection.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// Register inserts a named debug hook.
func (dp *DebugProbes) Register(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns the output of every probe.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// LogState writes every probe's output through the logger at Debug.
func (dp *DebugProbes) LogState(log *zap.Logger) {
	for name, value := range dp.DumpState() {
		log.Debug("probe", zap.String("name", name), zap.Any("state", value))
	}
}
