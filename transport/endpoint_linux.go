//go:build linux

// File: transport/endpoint_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoint helpers: address/port pairs resolved into raw sockaddr
// structures consumed by the socket adapters.

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
)

// Endpoint is a resolved transport address.
type Endpoint struct {
	Family int
	Addr   unix.Sockaddr
}

// IPEndpoint resolves host:port into an IPv4 or IPv6 endpoint.
func IPEndpoint(host string, port int) (Endpoint, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return Endpoint{}, fmt.Errorf("transport: bad address %q: %w", host, api.ErrRegistration)
	}
	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return Endpoint{Family: unix.AF_INET, Addr: sa}, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return Endpoint{Family: unix.AF_INET6, Addr: sa}, nil
}

// UnixEndpoint builds a local-domain endpoint for path.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{Family: unix.AF_UNIX, Addr: &unix.SockaddrUnix{Name: path}}
}
