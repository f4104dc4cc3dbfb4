package input

import (
	"fmt"
	"strings"
)

// Button names a discrete operator action.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonStart
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "a"
	case ButtonB:
		return "b"
	case ButtonStart:
		return "start"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// ParseButton accepts the names produced by String.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return ButtonA, nil
	case "b":
		return ButtonB, nil
	case "start":
		return ButtonStart, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// GamepadButton maps an Xbox-layout button index to a Button.
func GamepadButton(index int) (Button, bool) {
	switch index {
	case 0:
		return ButtonA, true
	case 1:
		return ButtonB, true
	case 7:
		return ButtonStart, true
	}
	return 0, false
}

// EdgeDetector turns button down/up events into single presses. A button
// held down reports one press until it is released.
type EdgeDetector struct {
	held map[Button]bool
}

// Down records b going down and reports whether this is a new press.
func (e *EdgeDetector) Down(b Button) bool {
	if e.held == nil {
		e.held = make(map[Button]bool)
	}
	if e.held[b] {
		return false
	}
	e.held[b] = true
	return true
}

// Up records b being released.
func (e *EdgeDetector) Up(b Button) {
	delete(e.held, b)
}

// Held reports whether b is currently down.
func (e *EdgeDetector) Held(b Button) bool {
	return e.held[b]
}
