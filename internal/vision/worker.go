package vision

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/timeutil"
)

// missBackoff is the pause after a failed capture before retrying.
const missBackoff = 5 * time.Millisecond

// Worker runs capture and tracking on its own goroutine and publishes each
// result to a Slot.
type Worker struct {
	cam     Camera
	tracker *Tracker
	slot    *Slot
	metrics *monitoring.Metrics
	clock   timeutil.Clock

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewWorker wires a camera and tracker to slot. metrics may be nil.
func NewWorker(cam Camera, tracker *Tracker, slot *Slot, metrics *monitoring.Metrics) *Worker {
	return &Worker{
		cam:     cam,
		tracker: tracker,
		slot:    slot,
		metrics: metrics,
		clock:   timeutil.RealClock{},
	}
}

// SetClock replaces the clock used for capture timestamps and the miss
// backoff. Call it before Start.
func (w *Worker) SetClock(c timeutil.Clock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clock = c
}

// Slot returns the slot the worker publishes to.
func (w *Worker) Slot() *Slot { return w.slot }

// Running reports whether the capture loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

// Start opens the camera and starts the capture loop. It is a no-op when
// already running. An open failure is returned wrapping
// ErrCameraUnavailable and the worker stays stopped.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return nil
	}
	if err := w.cam.Open(); err != nil {
		if errors.Is(err, ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(w.stop, w.done)
	monitoring.Logf("camera: capture started")
	return nil
}

// Stop ends the capture loop, waits for it to exit and closes the camera.
// It is a no-op when not running.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	<-w.done
	w.stop, w.done = nil, nil

	if err := w.cam.Close(); err != nil {
		return fmt.Errorf("close camera: %w", err)
	}
	monitoring.Logf("camera: capture stopped")
	return nil
}

func (w *Worker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	raw := gocv.NewMat()
	defer raw.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := w.step(&raw); err != nil {
			w.metrics.CaptureMissed()
			monitoring.Debugf("camera: %v", err)
			select {
			case <-stop:
				return
			case <-w.clock.After(missBackoff):
			}
		}
	}
}

// step captures, tracks and publishes one frame.
func (w *Worker) step(raw *gocv.Mat) error {
	if err := w.cam.Read(raw); err != nil {
		return err
	}
	captured := w.clock.Now()

	frame, pos, err := w.tracker.Process(*raw)
	defer frame.Close()
	if err != nil {
		return err
	}
	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	_, dropped := w.slot.Publish(Snapshot{Captured: captured, Frame: img, Position: pos})
	w.metrics.FrameCaptured()
	if dropped {
		w.metrics.FrameDropped()
	}
	if pos.Found {
		w.metrics.PositionFound()
	}
	return nil
}
