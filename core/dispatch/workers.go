// File: core/dispatch/workers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerPool runs a caller-controlled number of goroutines against one
// service's Run entry point.

package dispatch

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool drives a service with n concurrent runners.
type WorkerPool struct {
	svc     *Service
	n       int
	wg      sync.WaitGroup
	started atomic.Bool
}

// NewWorkerPool creates a pool of n runners. n <= 0 defaults to
// runtime.NumCPU().
func NewWorkerPool(svc *Service, n int) *WorkerPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &WorkerPool{svc: svc, n: n}
}

// Start launches the runner goroutines. Idempotent.
func (p *WorkerPool) Start() {
	if p.started.Swap(true) {
		return
	}
	p.wg.Add(p.n)
	for i := 0; i < p.n; i++ {
		go func() {
			defer p.wg.Done()
			p.svc.Run()
		}()
	}
}

// Wait blocks until every runner has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stop stops the service and waits for the runners to drain.
func (p *WorkerPool) Stop() {
	p.svc.Stop()
	p.Wait()
}

// Size returns the number of runners.
func (p *WorkerPool) Size() int { return p.n }
