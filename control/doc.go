// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package control provides runtime metrics and debug introspection for
// hioload-aio services: concurrent-safe counter snapshots and named
// probe registration for state export.
package control
