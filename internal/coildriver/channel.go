package coildriver

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edumag/edumag/internal/monitoring"
)

var (
	// ErrNotConnected is returned by every operation on a closed channel.
	ErrNotConnected = errors.New("coil driver not connected")
	// ErrEchoMismatch is returned when no attempt saw its command echoed.
	ErrEchoMismatch = errors.New("coil driver did not echo command")
	// ErrWriteFailed is returned on a short write.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

const (
	// DefaultReadTimeout bounds each serial read.
	DefaultReadTimeout = 30 * time.Millisecond
	// DefaultAttempts is the echo attempt count used by the typed commands.
	DefaultAttempts = 1

	maxLineBytes    = 4096
	maxPayloadLines = 64
)

// Channel is a request/response client for the coil driver. Commands are
// serialised; at most one port is open at a time. Disconnect may be called
// while a command is in flight, which makes that command fail.
type Channel struct {
	open    SerialPortOpener
	metrics *monitoring.Metrics

	ioMu    sync.Mutex // serialises round trips; guards pending
	pending []byte

	stateMu  sync.Mutex
	port     SerialPorter
	portName string
	opts     PortOptions
	attempts int
}

// NewChannel returns a disconnected channel that opens ports with open.
// A nil opener uses OpenPort.
func NewChannel(open SerialPortOpener, metrics *monitoring.Metrics) *Channel {
	if open == nil {
		open = OpenPort
	}
	return &Channel{open: open, metrics: metrics, attempts: DefaultAttempts}
}

// Connect opens portName. Connecting again to the open port with equal
// options keeps the existing connection; otherwise any existing connection
// is closed first. A positive timeout is applied to reads when the port
// supports it.
func (c *Channel) Connect(portName string, opts PortOptions, timeout time.Duration) error {
	c.stateMu.Lock()
	same := c.port != nil && c.portName == portName && c.opts.Equal(opts)
	c.stateMu.Unlock()
	if same {
		monitoring.Debugf("driver: already connected to %s", portName)
		return nil
	}

	if err := c.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		monitoring.Logf("driver: closing previous port: %v", err)
	}

	port, err := c.open(portName, opts)
	if err != nil {
		return fmt.Errorf("connect %s: %w", portName, err)
	}
	if tp, ok := port.(TimeoutSerialPorter); ok && timeout > 0 {
		if err := tp.SetReadTimeout(timeout); err != nil {
			port.Close()
			return fmt.Errorf("set read timeout on %s: %w", portName, err)
		}
	}

	c.ioMu.Lock()
	c.pending = c.pending[:0]
	c.ioMu.Unlock()

	c.stateMu.Lock()
	c.port = port
	c.portName = portName
	c.opts = opts
	c.stateMu.Unlock()
	c.metrics.SetDriverConnected(true)
	monitoring.Logf("driver: connected to %s", portName)
	return nil
}

// Disconnect closes the open port. It returns ErrNotConnected when there
// was nothing to close.
func (c *Channel) Disconnect() error {
	c.stateMu.Lock()
	port := c.port
	name := c.portName
	c.port = nil
	c.portName = ""
	c.stateMu.Unlock()

	if port == nil {
		return ErrNotConnected
	}
	c.metrics.SetDriverConnected(false)
	if err := port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	monitoring.Logf("driver: disconnected from %s", name)
	return nil
}

// Connected reports whether a port is open.
func (c *Channel) Connected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.port != nil
}

// PortName returns the open port's name, or "" when disconnected.
func (c *Channel) PortName() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.portName
}

// SetAttempts sets the echo attempt count used by the typed commands.
func (c *Channel) SetAttempts(n int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.attempts = max(n, 1)
}

// Attempts returns the echo attempt count used by the typed commands.
func (c *Channel) Attempts() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.attempts
}

func (c *Channel) current() SerialPorter {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.port
}

// SendWithEcho writes command and waits for the device to echo it. On a
// matching echo the following non-blank lines are returned joined by "\n".
// Input left over from earlier traffic is discarded before every write and
// after every mismatch, so a failed round trip never leaks into the next
// one. After maxAttempts mismatches ErrEchoMismatch is returned.
func (c *Channel) SendWithEcho(command string, maxAttempts int) (string, error) {
	command = strings.TrimRight(command, "\r\n")
	maxAttempts = max(maxAttempts, 1)

	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	port := c.current()
	if port == nil {
		return "", ErrNotConnected
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		c.discardInput(port)
		if r, ok := port.(BufferResetter); ok {
			if err := r.ResetOutputBuffer(); err != nil {
				monitoring.Debugf("driver: reset output buffer: %v", err)
			}
		}
		if err := writeLine(port, command); err != nil {
			c.metrics.CommandSent(err)
			return "", fmt.Errorf("send %q: %w", command, err)
		}

		echo, err := c.readLine(port)
		if err != nil {
			c.pending = c.pending[:0]
			c.metrics.CommandSent(err)
			return "", fmt.Errorf("read echo of %q: %w", command, err)
		}
		if echo == command {
			payload, err := c.readPayload(port)
			c.metrics.CommandSent(err)
			if err != nil {
				c.pending = c.pending[:0]
				return "", fmt.Errorf("read reply to %q: %w", command, err)
			}
			return payload, nil
		}

		monitoring.Debugf("driver: attempt %d/%d for %q got %q", attempt+1, maxAttempts, command, echo)
		c.discardInput(port)
	}

	c.metrics.EchoFailed()
	c.metrics.CommandSent(ErrEchoMismatch)
	return "", fmt.Errorf("%w: %q after %d attempt(s)", ErrEchoMismatch, command, maxAttempts)
}

func writeLine(port SerialPorter, line string) error {
	buf := []byte(line + "\n")
	n, err := port.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return ErrWriteFailed
	}
	return nil
}

func (c *Channel) discardInput(port SerialPorter) {
	c.pending = c.pending[:0]
	if r, ok := port.(BufferResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			monitoring.Debugf("driver: reset input buffer: %v", err)
		}
	}
}

// readLine returns the next line with surrounding whitespace removed. A
// read that yields no bytes is a timeout and ends the line early, so a
// silent device produces "".
func (c *Channel) readLine(port SerialPorter) (string, error) {
	var chunk [256]byte
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(c.pending[:i])
			c.pending = append(c.pending[:0], c.pending[i+1:]...)
			return strings.TrimSpace(line), nil
		}
		if len(c.pending) > maxLineBytes {
			line := string(c.pending)
			c.pending = c.pending[:0]
			return strings.TrimSpace(line), nil
		}
		n, err := port.Read(chunk[:])
		if n > 0 {
			c.pending = append(c.pending, chunk[:n]...)
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			line := string(c.pending)
			c.pending = c.pending[:0]
			return strings.TrimSpace(line), nil
		}
	}
}

func (c *Channel) readPayload(port SerialPorter) (string, error) {
	var lines []string
	for len(lines) < maxPayloadLines {
		line, err := c.readLine(port)
		if err != nil {
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
