package session

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/vision"
)

var defaultBrush = color.RGBA{R: 255, A: 255}

// Paint lets the operator draw with the marker. Pressing A drops the
// tracked position onto the stroke in the brush colour, which the right
// stick picks from the hue wheel. Start wipes the canvas.
type Paint struct {
	overlay *vision.Overlay

	mu     sync.Mutex
	brush  color.RGBA
	stroke []vision.Mark
}

func NewPaint() *Paint {
	return &Paint{overlay: vision.NewOverlay(), brush: defaultBrush}
}

func (p *Paint) Kind() Kind               { return KindPaint }
func (p *Paint) Overlay() *vision.Overlay { return p.overlay }
func (p *Paint) ManualField() bool        { return true }

func (p *Paint) Start(time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.brush = defaultBrush
	p.clear()
	return nil
}

func (p *Paint) clear() {
	p.stroke = nil
	p.overlay.Clear()
}

func (p *Paint) Tick(tc TickContext) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tc.Input.RightStick.Active {
		p.brush = HueColor(tc.Input.RightStick.Degrees)
	}
	if tc.Input.Has(input.ButtonStart) {
		p.clear()
	}
	if tc.Input.Has(input.ButtonA) && tc.Position.Found {
		m := vision.Mark{At: image.Pt(tc.Position.X, tc.Position.Y), Color: p.brush}
		if len(p.stroke) == 0 {
			p.overlay.AddPoint(m)
		}
		p.stroke = append(p.stroke, m)
		p.overlay.AddLinePoint(m)
	}
	return false
}

// Brush is the colour the next point will take.
func (p *Paint) Brush() color.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.brush
}

// Stroke returns the points drawn so far.
func (p *Paint) Stroke() []vision.Mark {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]vision.Mark(nil), p.stroke...)
}

func (p *Paint) Stop() {}

func (p *Paint) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Result{Kind: KindPaint, Score: len(p.stroke)}
}

// HueColor is the fully saturated, full-value colour at hue deg.
func HueColor(deg int) color.RGBA {
	h := float64(((deg%360)+360)%360) / 60
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	c := func(v float64) uint8 { return uint8(math.Round(v * 255)) }
	return color.RGBA{R: c(r), G: c(g), B: c(b), A: 255}
}
