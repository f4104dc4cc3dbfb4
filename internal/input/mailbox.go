package input

import "sync"

// State is everything the control loop reads from the operator in one
// tick.
type State struct {
	Stick      Stick
	RightStick Stick
	Trigger    float64
	// Pressed lists button presses since the previous poll, oldest first.
	Pressed []Button
}

// Has reports whether b was pressed.
func (s State) Has(b Button) bool {
	for _, p := range s.Pressed {
		if p == b {
			return true
		}
	}
	return false
}

// Source is polled once per control tick.
type Source interface {
	Poll() State
}

// Mailbox is a Source that input collaborators push into from any
// goroutine. Sticks and the trigger are levels and persist between polls;
// presses are queued and drained by Poll.
type Mailbox struct {
	mu      sync.Mutex
	stick   Stick
	right   Stick
	trigger float64
	pressed []Button
	edges   EdgeDetector
}

// NewMailbox returns a mailbox with every control at rest.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) SetStick(s Stick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stick = s
}

func (m *Mailbox) SetRightStick(s Stick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.right = s
}

func (m *Mailbox) SetTrigger(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = v
}

// SetAxes updates the left stick and triggers from raw gamepad axes using
// the default thresholds.
func (m *Mailbox) SetAxes(leftX, leftY, rightTrigger, leftTrigger float64) {
	stick := AxisAngle(leftX, leftY, StickThreshold)
	trig := TriggerBlend(rightTrigger, leftTrigger, TriggerThreshold, MaxTriggerIncrease)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stick, m.trigger = stick, trig
}

// SetDial sets the direction from the dial. The dial only commands a field
// while it is held.
func (m *Mailbox) SetDial(dial int, held bool) {
	s := Neutral
	if held {
		s = Angle(DialToTheta(dial))
	}
	m.SetStick(s)
}

// SetArrows sets the direction from the arrow keys.
func (m *Mailbox) SetArrows(up, down, left, right bool) {
	m.SetStick(ArrowAngle(up, down, left, right))
}

// ButtonDown queues a press of b unless b is already held.
func (m *Mailbox) ButtonDown(b Button) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edges.Down(b) {
		m.pressed = append(m.pressed, b)
	}
}

// ButtonUp releases b.
func (m *Mailbox) ButtonUp(b Button) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges.Up(b)
}

// Press queues a complete press and release of b.
func (m *Mailbox) Press(b Button) {
	m.ButtonDown(b)
	m.ButtonUp(b)
}

// Poll returns the current levels and drains queued presses.
func (m *Mailbox) Poll() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Stick:      m.stick,
		RightStick: m.right,
		Trigger:    m.trigger,
		Pressed:    m.pressed,
	}
	m.pressed = nil
	return st
}
