package coildriver

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"time"
)

// Responder maps one received command line to the lines the device sends
// back. An empty string in the result is sent as a blank line.
type Responder func(line string) []string

// EchoResponder replies like a healthy board: the echo, the given payload
// lines, then the blank terminator.
func EchoResponder(payload ...string) Responder {
	return func(line string) []string {
		out := append([]string{line}, payload...)
		return append(out, "")
	}
}

// MockDevice is an in-memory SerialPorter driven by a Responder. Reads on
// an empty buffer behave like a timed-out serial read and return (0, nil).
type MockDevice struct {
	mu sync.Mutex

	respond Responder
	rx      bytes.Buffer // device -> host
	partial []byte       // host -> device, incomplete line

	Lines       []string
	WriteCalls  int
	ReadTimeout time.Duration
	Closed      bool

	// WriteError, when set, is returned by the next Write.
	WriteError error
}

// NewMockDevice returns a device that answers with respond. A nil
// responder never replies.
func NewMockDevice(respond Responder) *MockDevice {
	if respond == nil {
		respond = func(string) []string { return nil }
	}
	return &MockDevice{respond: respond}
}

// Opener returns a SerialPortOpener that always yields d, reopening it if
// it was closed.
func (d *MockDevice) Opener() SerialPortOpener {
	return func(string, PortOptions) (SerialPorter, error) {
		d.mu.Lock()
		d.Closed = false
		d.mu.Unlock()
		return d, nil
	}
}

func (d *MockDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.WriteCalls++
	if d.Closed {
		return 0, errors.New("serial port closed")
	}
	if d.WriteError != nil {
		err := d.WriteError
		d.WriteError = nil
		return 0, err
	}

	d.partial = append(d.partial, p...)
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(d.partial[:i]), "\r")
		d.partial = d.partial[i+1:]
		d.Lines = append(d.Lines, line)
		for _, reply := range d.respond(line) {
			d.rx.WriteString(reply)
			d.rx.WriteByte('\n')
		}
	}
	return len(p), nil
}

func (d *MockDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Closed {
		return 0, errors.New("serial port closed")
	}
	if d.rx.Len() == 0 {
		return 0, nil
	}
	return d.rx.Read(p)
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// SetReadTimeout implements TimeoutSerialPorter.
func (d *MockDevice) SetReadTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ReadTimeout = timeout
	return nil
}

// ResetInputBuffer drops unread device output.
func (d *MockDevice) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx.Reset()
	return nil
}

// ResetOutputBuffer drops any incomplete outbound line.
func (d *MockDevice) ResetOutputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.partial = d.partial[:0]
	return nil
}

// Inject queues raw bytes as if the device had sent them unprompted.
func (d *MockDevice) Inject(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx.WriteString(s)
}

// Received returns a copy of every complete line written so far.
func (d *MockDevice) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Lines...)
}

// Writes returns the number of Write calls.
func (d *MockDevice) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.WriteCalls
}

// SimulatedBoard emulates the driver firmware closely enough for -dev runs:
// it stores target currents and percent outputs and reports the targets
// back as the measured currents.
type SimulatedBoard struct {
	mu       sync.Mutex
	targets  [4]float64
	percents [4]float64
}

// Device returns a MockDevice wired to the board.
func (b *SimulatedBoard) Device() *MockDevice {
	return NewMockDevice(b.respond)
}

// Targets returns the most recently set target currents.
func (b *SimulatedBoard) Targets() [4]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.targets
}

func (b *SimulatedBoard) respond(line string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	reply := []string{line}
	switch {
	case strings.HasPrefix(line, CmdSetTargetCurrents):
		if v, err := ParseQuad("=" + strings.TrimPrefix(line, CmdSetTargetCurrents)); err == nil {
			b.targets = v
		}
	case strings.HasPrefix(line, CmdSetPercentOutputs):
		if v, err := ParseQuad("=" + strings.TrimPrefix(line, CmdSetPercentOutputs)); err == nil {
			b.percents = v
		}
	case line == CmdGetTargetCurrents:
		reply = append(reply, "TARGET CURRENTS="+EncodeValues(b.targets[:]))
	case line == CmdGetMeasuredCurrents:
		reply = append(reply, "MEASURED CURRENTS="+EncodeValues(b.targets[:]))
	case line == CmdGetPercentOutputs:
		reply = append(reply, "PERCENT OUTPUTS="+EncodeValues(b.percents[:]))
	case line == CmdReset:
		b.targets = [4]float64{}
		b.percents = [4]float64{}
	default:
		return []string{"ERR UNKNOWN COMMAND", ""}
	}
	return append(reply, "")
}
