// Package input turns raw operator controls (gamepad axes and buttons,
// arrow keys, the direction dial) into the decoded form the control loop
// consumes: a direction or neutral, a trigger blend and button edges.
package input

import (
	"math"
)

// Defaults used by the gamepad decoders.
const (
	StickThreshold     = 0.1
	TriggerThreshold   = 0.1
	MaxTriggerIncrease = 0.5
)

// Stick is a decoded direction in whole degrees, counter-clockwise from
// +x, in [0,360). Inactive means the control is in its dead zone.
type Stick struct {
	Degrees int
	Active  bool
}

// Neutral is the dead-zone reading.
var Neutral = Stick{}

// Angle returns an active stick pointing at deg, normalized to [0,360).
func Angle(deg int) Stick {
	return Stick{Degrees: mod360(deg), Active: true}
}

func mod360(v int) int {
	v %= 360
	if v < 0 {
		v += 360
	}
	return v
}

// AxisAngle decodes a stick from its x and y axes in [-1,1], where y grows
// downwards as gamepads report it. Both axes within threshold is neutral.
// Degrees are truncated towards zero before wrapping into [0,360).
func AxisAngle(x, y, threshold float64) Stick {
	if math.Abs(x) <= threshold && math.Abs(y) <= threshold {
		return Neutral
	}
	// Rounded to micro-degrees first so exact diagonals survive truncation.
	deg := int(math.Round(math.Atan2(-y, x)*180/math.Pi*1e6) / 1e6)
	if deg < 0 {
		deg += 360
	}
	return Stick{Degrees: deg, Active: true}
}

// TriggerBlend maps the right and left trigger axes, each resting at -1
// and fully pressed at +1, to a signed increment in
// [-maxIncrease, maxIncrease]. Right increases, left decreases.
func TriggerBlend(rightAxis, leftAxis, threshold, maxIncrease float64) float64 {
	right := (rightAxis + 1) / 2
	left := (leftAxis + 1) / 2
	if math.Abs(right) <= threshold && math.Abs(left) <= threshold {
		return 0
	}
	return (right - left) * maxIncrease
}

// ArrowAngle decodes the arrow keys. A single arrow or a diagonal pair
// gives a direction; no keys or any other combination is neutral.
func ArrowAngle(up, down, left, right bool) Stick {
	type keys struct{ up, down, left, right bool }
	switch (keys{up, down, left, right}) {
	case keys{right: true}:
		return Angle(0)
	case keys{up: true, right: true}:
		return Angle(45)
	case keys{up: true}:
		return Angle(90)
	case keys{up: true, left: true}:
		return Angle(135)
	case keys{left: true}:
		return Angle(180)
	case keys{down: true, left: true}:
		return Angle(225)
	case keys{down: true}:
		return Angle(270)
	case keys{down: true, right: true}:
		return Angle(315)
	}
	return Neutral
}

// ThetaToDial converts a field direction to the dial's position. The dial
// counts clockwise with zero at the bottom.
func ThetaToDial(theta int) int {
	return mod360(360 - theta - 90)
}

// DialToTheta is the inverse of ThetaToDial.
func DialToTheta(dial int) int {
	return mod360(-(dial + 90))
}
