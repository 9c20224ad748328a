// File: serial/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serial line configuration. Mirrors the classic termios knobs: baud
// rate, character size, parity, stop bits, flow control.

package serial

// Parity selects the parity discipline.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// StopBits selects one or two stop bits.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// FlowControl selects the flow control discipline.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlSoftware
	FlowControlHardware
)

// Options describes the serial line configuration applied on open.
type Options struct {
	// BaudRate in bits per second, e.g. 9600 or 115200.
	BaudRate int
	// CharSize is the character size in bits, 5 through 8.
	CharSize int
	// Parity discipline; default none.
	Parity Parity
	// StopBits count; default one.
	StopBits StopBits
	// FlowControl discipline; default none.
	FlowControl FlowControl
}

// DefaultOptions returns the conventional 9600-8-N-1 configuration.
func DefaultOptions() Options {
	return Options{
		BaudRate: 9600,
		CharSize: 8,
	}
}
