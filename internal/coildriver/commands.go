package coildriver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/edumag/edumag/internal/fieldsolver"
)

// Command prefixes understood by the driver board.
const (
	CmdSetTargetCurrents   = "SET TARGET CURRENTS:"
	CmdGetTargetCurrents   = "GET TARGET CURRENTS:"
	CmdGetMeasuredCurrents = "GET MEASURED CURRENTS:"
	CmdSetPercentOutputs   = "SET PERCENT OUTPUTS:"
	CmdGetPercentOutputs   = "GET PERCENT OUTPUTS:"
	CmdReset               = "RESET:"
)

// ErrUnsafeCurrents is returned when a current vector exceeds the hardware
// ceiling. Such vectors are never written to the port.
var ErrUnsafeCurrents = errors.New("current vector exceeds hardware ceiling")

// ErrMalformedReply is returned when a get reply does not carry four values.
var ErrMalformedReply = errors.New("malformed driver reply")

// EncodeValues formats values as comma-joined fixed two-decimal numbers.
func EncodeValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strings.Join(parts, ",")
}

// ParseQuad decodes a reply of the form "...=v1,v2,v3,v4".
func ParseQuad(reply string) ([4]float64, error) {
	var out [4]float64
	_, values, ok := strings.Cut(reply, "=")
	if !ok {
		return out, fmt.Errorf("%w: no '=' in %q", ErrMalformedReply, reply)
	}
	// Only the first payload line carries values.
	values, _, _ = strings.Cut(values, "\n")
	fields := strings.Split(values, ",")
	if len(fields) != len(out) {
		return out, fmt.Errorf("%w: want %d values, got %d in %q", ErrMalformedReply, len(out), len(fields), reply)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return out, fmt.Errorf("%w: value %d: %v", ErrMalformedReply, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func (c *Channel) set(prefix string, values []float64) error {
	_, err := c.SendWithEcho(prefix+EncodeValues(values), c.Attempts())
	return err
}

func (c *Channel) get(prefix string) ([4]float64, error) {
	reply, err := c.SendWithEcho(prefix, c.Attempts())
	if err != nil {
		return [4]float64{}, err
	}
	return ParseQuad(reply)
}

// SetTargetCurrents commands the four coil currents in amps.
func (c *Channel) SetTargetCurrents(I fieldsolver.CurrentVector) error {
	if !I.Safe() {
		return fmt.Errorf("%w: %v", ErrUnsafeCurrents, I)
	}
	return c.set(CmdSetTargetCurrents, I[:])
}

// GetTargetCurrents returns the currents the board is regulating towards.
func (c *Channel) GetTargetCurrents() (fieldsolver.CurrentVector, error) {
	v, err := c.get(CmdGetTargetCurrents)
	return fieldsolver.CurrentVector(v), err
}

// GetMeasuredCurrents returns the currents the board measures.
func (c *Channel) GetMeasuredCurrents() (fieldsolver.CurrentVector, error) {
	v, err := c.get(CmdGetMeasuredCurrents)
	return fieldsolver.CurrentVector(v), err
}

// SetPercentOutputs sets the raw PWM duty per channel, -100..100.
func (c *Channel) SetPercentOutputs(p [4]float64) error {
	return c.set(CmdSetPercentOutputs, p[:])
}

// GetPercentOutputs returns the raw PWM duty per channel.
func (c *Channel) GetPercentOutputs() ([4]float64, error) {
	return c.get(CmdGetPercentOutputs)
}

// Reset zeroes every coil.
func (c *Channel) Reset() error {
	_, err := c.SendWithEcho(CmdReset, c.Attempts())
	return err
}
