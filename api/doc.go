// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the contracts shared across hioload-aio: the error
// taxonomy delivered to completion handlers, the generic Result payload,
// the Completion callback shape, and the executor/shutdown interfaces.
//
// Collaborators (socket, timer, signal and serial adapters) consume the
// dispatch core exclusively through these types.
package api
