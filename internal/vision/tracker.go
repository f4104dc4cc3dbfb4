// Package vision locates the steered marker in camera frames and hands
// the latest result to the control loop.
//
// Frames flow through a fixed pipeline: centre crop to a square region of
// interest, rotate to the workspace orientation, threshold so the dark
// marker becomes foreground, dilate, and take the centroid of the largest
// external contour. Only one marker is supported; the largest blob wins.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned for frames with no pixels.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrFrameTooSmall is returned when a frame cannot hold the region of
	// interest.
	ErrFrameTooSmall = errors.New("frame smaller than region of interest")
)

// Position is a marker location in processed-frame pixels.
type Position struct {
	X, Y  int
	Found bool
}

// NotFound is the Position reported when no marker is visible.
var NotFound = Position{}

// Point returns the position as an image.Point.
func (p Position) Point() image.Point { return image.Pt(p.X, p.Y) }

func (p Position) String() string {
	if !p.Found {
		return "not found"
	}
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// TrackerParams configures the pipeline.
type TrackerParams struct {
	ROISize      int // side of the square crop, pixels
	Threshold    int // grey level below which pixels count as marker
	DilateKernel int // side of the square dilation kernel
}

// DefaultTrackerParams matches the workspace camera rig.
func DefaultTrackerParams() TrackerParams {
	return TrackerParams{ROISize: 700, Threshold: 87, DilateKernel: 5}
}

// Tracker runs the marker pipeline. It holds no per-frame state and is
// safe for concurrent use.
type Tracker struct {
	params TrackerParams
}

// NewTracker returns a tracker, substituting defaults for non-positive
// parameters.
func NewTracker(p TrackerParams) *Tracker {
	def := DefaultTrackerParams()
	if p.ROISize <= 0 {
		p.ROISize = def.ROISize
	}
	if p.Threshold <= 0 {
		p.Threshold = def.Threshold
	}
	if p.DilateKernel <= 0 {
		p.DilateKernel = def.DilateKernel
	}
	return &Tracker{params: p}
}

// Params returns the effective parameters.
func (t *Tracker) Params() TrackerParams { return t.params }

// Preprocess crops the centred ROISize square out of raw and rotates it
// 90 degrees counter-clockwise. The caller owns the returned Mat.
func (t *Tracker) Preprocess(raw gocv.Mat) (gocv.Mat, error) {
	if raw.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	s := t.params.ROISize
	rows, cols := raw.Rows(), raw.Cols()
	if rows < s || cols < s {
		return gocv.NewMat(), fmt.Errorf("%w: %dx%d < %d", ErrFrameTooSmall, cols, rows, s)
	}

	x0, y0 := cols/2-s/2, rows/2-s/2
	roi := raw.Region(image.Rect(x0, y0, x0+s, y0+s))
	defer roi.Close()

	out := gocv.NewMat()
	gocv.Rotate(roi, &out, gocv.Rotate90CounterClockwise)
	return out, nil
}

// Locate finds the marker in an already preprocessed frame.
func (t *Tracker) Locate(frame gocv.Mat) Position {
	if frame.Empty() {
		return NotFound
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, float32(t.params.Threshold), 255, gocv.ThresholdBinaryInv)

	k := t.params.DilateKernel
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k))
	defer kernel.Close()
	gocv.Dilate(mask, &mask, kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return NotFound
	}

	best, bestArea := 0, -1.0
	for i := 0; i < contours.Size(); i++ {
		// Strictly greater keeps the first of equal-area contours.
		if a := gocv.ContourArea(contours.At(i)); a > bestArea {
			best, bestArea = i, a
		}
	}

	m00, m10, m01 := polygonMoments(contours.At(best).ToPoints())
	if m00 == 0 {
		return NotFound
	}
	return Position{X: int(m10 / m00), Y: int(m01 / m00), Found: true}
}

// Process preprocesses raw and locates the marker in the result. The
// caller owns the returned Mat, which is valid even when err is nil and
// the marker is not found.
func (t *Tracker) Process(raw gocv.Mat) (gocv.Mat, Position, error) {
	frame, err := t.Preprocess(raw)
	if err != nil {
		return frame, NotFound, err
	}
	return frame, t.Locate(frame), nil
}

// polygonMoments returns the raw moments m00, m10 and m01 of the closed
// polygon pts using Green's theorem, oriented so m00 is non-negative.
func polygonMoments(pts []image.Point) (m00, m10, m01 float64) {
	n := len(pts)
	if n < 3 {
		return 0, 0, 0
	}
	var a, cx, cy float64
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		xi, yi := float64(p.X), float64(p.Y)
		xj, yj := float64(q.X), float64(q.Y)
		cross := xi*yj - xj*yi
		a += cross
		cx += (xi + xj) * cross
		cy += (yi + yj) * cross
	}
	m00, m10, m01 = a/2, cx/6, cy/6
	if m00 < 0 {
		m00, m10, m01 = -m00, -m10, -m01
	}
	return m00, m10, m01
}
