package coildriver

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the driver board's fixed link speed.
const DefaultBaudRate = 115200

// PortOptions are the line settings for the coil driver link. The zero
// value is the board's own framing, 115200 8N1.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// parities maps accepted spellings onto go.bug.st/serial parity modes.
var parities = map[string]serial.Parity{
	"":     serial.NoParity,
	"N":    serial.NoParity,
	"NONE": serial.NoParity,
	"E":    serial.EvenParity,
	"EVEN": serial.EvenParity,
	"O":    serial.OddParity,
	"ODD":  serial.OddParity,
}

var parityLetters = map[serial.Parity]string{
	serial.NoParity:   "N",
	serial.EvenParity: "E",
	serial.OddParity:  "O",
}

// Normalize fills unset fields with the board defaults and rewrites the
// parity as a single letter. Settings the board cannot use are an error.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits > 2 || o.StopBits < 1 {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	p, ok := parities[strings.ToUpper(strings.TrimSpace(o.Parity))]
	if !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = parityLetters[p]
	return o, nil
}

// Equal reports whether o and other open the link identically. Invalid
// options equal nothing.
func (o PortOptions) Equal(other PortOptions) bool {
	a, err := o.Normalize()
	if err != nil {
		return false
	}
	b, err := other.Normalize()
	return err == nil && a == b
}

// SerialMode builds the go.bug.st/serial mode for OpenPort.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	stop := serial.OneStopBit
	if n.StopBits == 2 {
		stop = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		StopBits: stop,
		Parity:   parities[n.Parity],
	}, nil
}
