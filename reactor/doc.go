// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor implements the readiness-notification engine behind the
// hioload-aio dispatch service: a single blocking multiplexed wait over
// all registered descriptors, per-descriptor FIFO pending-operation
// lists, and an always-registered wake descriptor that makes the wait
// interruptible from any goroutine.
//
// The package is build-tag partitioned per platform; Linux uses
// level-triggered epoll with an eventfd wake channel.
package reactor
