// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport contains the thin socket adapters over the dispatch
// core: endpoint resolution and non-blocking stream, datagram, raw and
// sequenced-packet sockets whose operations are issued into the reactor
// and completed through the service queue. Protocol semantics above the
// raw syscalls (handshakes, framing, encryption) are out of scope.
package transport
