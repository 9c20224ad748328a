// File: signals/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package signals unifies OS signal handling with the hioload-aio
// operation model: delivery becomes a descriptor-readiness event on the
// reactor, and the completion handler receives the signal number on a
// normal worker goroutine, free of signal-handler-context restrictions.
// Multiple deliveries of the same signal between two checks may be
// coalesced into one notification.
package signals
