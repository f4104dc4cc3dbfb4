package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxPollDrainsPresses(t *testing.T) {
	m := NewMailbox()
	m.Press(ButtonA)
	m.Press(ButtonStart)

	st := m.Poll()
	assert.Equal(t, []Button{ButtonA, ButtonStart}, st.Pressed)
	assert.True(t, st.Has(ButtonStart))
	assert.False(t, st.Has(ButtonB))

	assert.Empty(t, m.Poll().Pressed)
}

func TestMailboxHeldButtonPressesOnce(t *testing.T) {
	m := NewMailbox()
	m.ButtonDown(ButtonB)
	m.ButtonDown(ButtonB)
	assert.Equal(t, []Button{ButtonB}, m.Poll().Pressed)

	m.ButtonDown(ButtonB)
	assert.Empty(t, m.Poll().Pressed)

	m.ButtonUp(ButtonB)
	m.ButtonDown(ButtonB)
	assert.Equal(t, []Button{ButtonB}, m.Poll().Pressed)
}

func TestMailboxLevelsPersist(t *testing.T) {
	m := NewMailbox()
	m.SetAxes(1, 0, 1, -1)
	m.SetRightStick(Angle(120))

	for range 2 {
		st := m.Poll()
		assert.Equal(t, Angle(0), st.Stick)
		assert.Equal(t, Angle(120), st.RightStick)
		assert.InDelta(t, 0.5, st.Trigger, 1e-12)
	}
}

func TestMailboxDial(t *testing.T) {
	m := NewMailbox()
	m.SetDial(ThetaToDial(45), true)
	assert.Equal(t, Angle(45), m.Poll().Stick)

	m.SetDial(ThetaToDial(45), false)
	assert.Equal(t, Neutral, m.Poll().Stick)

	m.SetArrows(false, true, true, false)
	assert.Equal(t, Angle(225), m.Poll().Stick)
}

func TestButtonNames(t *testing.T) {
	for _, b := range []Button{ButtonA, ButtonB, ButtonStart} {
		got, err := ParseButton(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseButton("x")
	assert.Error(t, err)

	b, ok := GamepadButton(7)
	assert.True(t, ok)
	assert.Equal(t, ButtonStart, b)
	_, ok = GamepadButton(3)
	assert.False(t, ok)
}
