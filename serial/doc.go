// File: serial/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package serial is a thin adapter for character devices: termios line
// configuration plus asynchronous reads and writes issued into the
// dispatch core. Protocol framing above the raw byte stream is out of
// scope.
package serial
