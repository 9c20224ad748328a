// File: internal/callstack/callstack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-owner goroutine call marking. A runner goroutine marks itself while
// executing handlers for an owner (service or strand); Dispatch uses the
// mark to run a handler inline instead of bouncing through the queue.

package callstack

import (
	"sync"

	"github.com/petermattis/goid"
)

// Stack tracks which goroutines are currently running handlers for one
// owner. Safe for concurrent use.
type Stack struct {
	mu  sync.Mutex
	ids map[int64]int
}

// New creates an empty call stack.
func New() *Stack {
	return &Stack{ids: make(map[int64]int)}
}

// Push marks the calling goroutine as running for the owner. Calls nest.
func (s *Stack) Push() {
	id := goid.Get()
	s.mu.Lock()
	s.ids[id]++
	s.mu.Unlock()
}

// Pop removes one nesting level of the calling goroutine's mark.
func (s *Stack) Pop() {
	id := goid.Get()
	s.mu.Lock()
	if n := s.ids[id]; n <= 1 {
		delete(s.ids, id)
	} else {
		s.ids[id] = n - 1
	}
	s.mu.Unlock()
}

// Contains reports whether the calling goroutine is currently running
// for the owner.
func (s *Stack) Contains() bool {
	id := goid.Get()
	s.mu.Lock()
	_, ok := s.ids[id]
	s.mu.Unlock()
	return ok
}
