package vision

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// Mark is an annotated point.
type Mark struct {
	At    image.Point
	Color color.RGBA
}

const (
	markRadius    = 5
	frameWeight   = 0.9
	overlayWeight = 1.0
	blendOffset   = 10
)

// Overlay holds annotations drawn over the displayed frame: filled
// points, outlined points and a polyline. It never affects tracking. All
// methods are safe for concurrent use.
type Overlay struct {
	mu       sync.Mutex
	points   []Mark
	outlines []Mark
	line     []Mark
	step     int
}

// NewOverlay returns an empty overlay whose polyline joins every
// consecutive pair of points.
func NewOverlay() *Overlay {
	return &Overlay{step: 1}
}

// AddPoint appends a filled point.
func (o *Overlay) AddPoint(m Mark) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.points = append(o.points, m)
}

// SetPoints replaces the filled points.
func (o *Overlay) SetPoints(ms []Mark) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.points = append(o.points[:0:0], ms...)
}

// SetOutlines replaces the outlined points.
func (o *Overlay) SetOutlines(ms []Mark) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outlines = append(o.outlines[:0:0], ms...)
}

// AddLinePoint extends the polyline.
func (o *Overlay) AddLinePoint(m Mark) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.line = append(o.line, m)
}

// SetLine replaces the polyline. With step k, segments are drawn from
// points 0, k, 2k, ... to their successor, so a step of 2 draws disjoint
// pairs.
func (o *Overlay) SetLine(ms []Mark, step int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.line = append(o.line[:0:0], ms...)
	o.step = max(step, 1)
}

// Clear removes every annotation.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.points, o.outlines, o.line = nil, nil, nil
	o.step = 1
}

// Empty reports whether there is nothing to draw.
func (o *Overlay) Empty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.empty()
}

func (o *Overlay) empty() bool {
	return len(o.points) == 0 && len(o.outlines) == 0 && len(o.line) < 2
}

// Points returns a copy of the filled points.
func (o *Overlay) Points() []Mark {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Mark(nil), o.points...)
}

// Line returns a copy of the polyline points.
func (o *Overlay) Line() []Mark {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Mark(nil), o.line...)
}

// Draw renders the annotations onto dst, a 3-channel Mat.
func (o *Overlay) Draw(dst *gocv.Mat) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, m := range o.points {
		gocv.Circle(dst, m.At, markRadius, m.Color, -1)
	}
	for i := 0; i+1 < len(o.line); i += o.step {
		gocv.Line(dst, o.line[i].At, o.line[i+1].At, o.line[i].Color, 1)
	}
	for _, m := range o.outlines {
		gocv.Circle(dst, m.At, markRadius, m.Color, 1)
	}
}

// Composite blends the annotations over frame as 0.9*frame + overlay + 10.
// With nothing to draw, frame itself is returned. The result always has
// frame's size and is a new image; frame is not modified.
func (o *Overlay) Composite(frame image.Image) (image.Image, error) {
	if o == nil || o.Empty() {
		return frame, nil
	}

	src, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer src.Close()

	layer := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	defer layer.Close()
	o.Draw(&layer)

	out := gocv.NewMat()
	defer out.Close()
	gocv.AddWeighted(src, frameWeight, layer, overlayWeight, blendOffset, &out)

	img, err := out.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert composite: %w", err)
	}
	return img, nil
}
