package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraUnavailable wraps every failure to open a camera.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrFrameMissed is returned by Read when a single capture fails.
	ErrFrameMissed = errors.New("frame capture missed")
	// ErrCameraClosed is returned by Read before Open or after Close.
	ErrCameraClosed = errors.New("camera not open")
)

// Camera yields raw colour frames.
type Camera interface {
	Open() error
	// Read captures the next frame into dst.
	Read(dst *gocv.Mat) error
	Close() error
}

// VideoCamera captures from a device through OpenCV.
type VideoCamera struct {
	// Device is a capture index such as "0", or a device path or URL.
	Device        string
	Width, Height int

	mu sync.Mutex
	vc *gocv.VideoCapture
}

// NewVideoCamera returns a camera for device at the requested resolution.
func NewVideoCamera(device string, width, height int) *VideoCamera {
	return &VideoCamera{Device: device, Width: width, Height: height}
}

func (c *VideoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc != nil {
		return nil
	}

	var dev interface{} = c.Device
	if idx, err := strconv.Atoi(c.Device); err == nil {
		dev = idx
	}
	vc, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCameraUnavailable, c.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: %s", ErrCameraUnavailable, c.Device)
	}
	if c.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	c.vc = vc
	return nil
}

func (c *VideoCamera) Read(dst *gocv.Mat) error {
	c.mu.Lock()
	vc := c.vc
	c.mu.Unlock()
	if vc == nil {
		return ErrCameraClosed
	}
	if ok := vc.Read(dst); !ok || dst.Empty() {
		return ErrFrameMissed
	}
	return nil
}

func (c *VideoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// SyntheticCamera renders a dark disk on a light background. The disk
// follows Path, or sits at the point given to MoveTo. It stands in for
// hardware in tests and development runs.
type SyntheticCamera struct {
	Width, Height int
	Radius        int
	// Path maps a frame index to the disk centre in raw-frame pixels.
	Path func(frame int) image.Point
	// FailOpen makes Open fail.
	FailOpen bool
	// MissEvery, when positive, makes every n-th Read miss.
	MissEvery int
	// Interval paces Read like a real sensor's frame period.
	Interval time.Duration

	mu     sync.Mutex
	open   bool
	frame  int
	pinned *image.Point
	opens  int
	closes int
}

// NewSyntheticCamera returns a 1080x1080 camera whose disk orbits the
// frame centre.
func NewSyntheticCamera() *SyntheticCamera {
	return &SyntheticCamera{
		Width:    1080,
		Height:   1080,
		Radius:   15,
		Path:     OrbitPath(image.Pt(540, 540), 200, 300),
		Interval: 33 * time.Millisecond,
	}
}

// OrbitPath returns a circular path of radius r around c completing one
// turn every period frames.
func OrbitPath(c image.Point, r float64, period int) func(int) image.Point {
	return func(n int) image.Point {
		phi := 2 * math.Pi * float64(n%period) / float64(period)
		return image.Pt(c.X+int(math.Round(r*math.Cos(phi))), c.Y+int(math.Round(r*math.Sin(phi))))
	}
}

// MoveTo pins the disk at p, overriding Path.
func (c *SyntheticCamera) MoveTo(p image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = &p
}

func (c *SyntheticCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailOpen {
		return fmt.Errorf("%w: synthetic camera configured to fail", ErrCameraUnavailable)
	}
	c.open = true
	c.opens++
	return nil
}

func (c *SyntheticCamera) Read(dst *gocv.Mat) error {
	if c.Interval > 0 {
		time.Sleep(c.Interval)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrCameraClosed
	}
	c.frame++
	if c.MissEvery > 0 && c.frame%c.MissEvery == 0 {
		return ErrFrameMissed
	}

	var centre image.Point
	switch {
	case c.pinned != nil:
		centre = *c.pinned
	case c.Path != nil:
		centre = c.Path(c.frame)
	default:
		centre = image.Pt(c.Width/2, c.Height/2)
	}

	frame := RenderDisk(c.Width, c.Height, centre, c.Radius)
	defer frame.Close()
	frame.CopyTo(dst)
	return nil
}

// Reads returns the number of Read calls made while open.
func (c *SyntheticCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *SyntheticCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		c.closes++
	}
	c.open = false
	return nil
}

// Counts returns how many times the camera was opened and closed.
func (c *SyntheticCamera) Counts() (opens, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes
}

// RenderDisk returns a light grey BGR frame with a solid dark disk of
// radius r at centre. A non-positive radius yields a blank frame.
func RenderDisk(width, height int, centre image.Point, r int) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(220, 220, 220, 0), height, width, gocv.MatTypeCV8UC3)
	if r > 0 {
		gocv.Circle(&m, centre, r, color.RGBA{R: 20, G: 20, B: 20, A: 255}, -1)
	}
	return m
}
