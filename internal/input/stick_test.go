package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAxisAngle(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want Stick
	}{
		{"dead zone", 0.05, -0.1, Neutral},
		{"right", 1, 0, Angle(0)},
		{"up", 0, -1, Angle(90)},
		{"left", -1, 0, Angle(180)},
		{"down", 0, 1, Angle(270)},
		{"up right", 0.5, -0.5, Angle(45)},
		{"down right truncates", 0.8, 0.3, Angle(340)},
		{"one axis outside", 0.2, 0, Angle(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AxisAngle(tt.x, tt.y, StickThreshold))
		})
	}
}

func TestTriggerBlend(t *testing.T) {
	assert.Equal(t, 0.0, TriggerBlend(-1, -1, TriggerThreshold, MaxTriggerIncrease))
	assert.Equal(t, 0.0, TriggerBlend(-0.9, -0.9, TriggerThreshold, MaxTriggerIncrease))
	assert.InDelta(t, 0.5, TriggerBlend(1, -1, TriggerThreshold, MaxTriggerIncrease), 1e-12)
	assert.InDelta(t, -0.5, TriggerBlend(-1, 1, TriggerThreshold, MaxTriggerIncrease), 1e-12)
	assert.InDelta(t, 0.0, TriggerBlend(1, 1, TriggerThreshold, MaxTriggerIncrease), 1e-12)
	assert.InDelta(t, 0.25, TriggerBlend(0, -1, TriggerThreshold, MaxTriggerIncrease), 1e-12)
}

func TestArrowAngle(t *testing.T) {
	assert.Equal(t, Neutral, ArrowAngle(false, false, false, false))
	assert.Equal(t, Angle(90), ArrowAngle(true, false, false, false))
	assert.Equal(t, Angle(270), ArrowAngle(false, true, false, false))
	assert.Equal(t, Angle(180), ArrowAngle(false, false, true, false))
	assert.Equal(t, Angle(0), ArrowAngle(false, false, false, true))
	assert.Equal(t, Angle(45), ArrowAngle(true, false, false, true))
	assert.Equal(t, Angle(135), ArrowAngle(true, false, true, false))
	assert.Equal(t, Angle(315), ArrowAngle(false, true, false, true))
	assert.Equal(t, Angle(225), ArrowAngle(false, true, true, false))
	// Opposing arrows and three-key chords do not resolve.
	assert.Equal(t, Neutral, ArrowAngle(true, true, false, false))
	assert.Equal(t, Neutral, ArrowAngle(true, false, true, true))
}

func TestDialRoundTrip(t *testing.T) {
	assert.Equal(t, 270, ThetaToDial(0))
	assert.Equal(t, 180, ThetaToDial(90))
	assert.Equal(t, 0, ThetaToDial(270))
	assert.Equal(t, 0, DialToTheta(270))
	assert.Equal(t, 270, DialToTheta(0))
	for theta := 0; theta < 360; theta += 15 {
		assert.Equal(t, theta, DialToTheta(ThetaToDial(theta)), "theta %d", theta)
	}
}

func TestAngleNormalizes(t *testing.T) {
	assert.Equal(t, 350, Angle(-10).Degrees)
	assert.Equal(t, 10, Angle(370).Degrees)
}
