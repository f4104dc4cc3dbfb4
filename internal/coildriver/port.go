// Package coildriver talks to the coil current-driver board over a serial
// link using a line-oriented echo protocol: every command line is echoed
// back verbatim before its payload, and a blank line ends the reply.
package coildriver

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// BufferResetter is implemented by ports that can discard buffered data.
// It is optional; ports without it simply skip the flush steps.
type BufferResetter interface {
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// A read that times out returns (0, nil).
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// SerialPortOpener opens a port at path with the given options. Tests
// replace it to inject mock ports.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)
