package vision

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/timeutil"
)

func testCamera() *SyntheticCamera {
	cam := NewSyntheticCamera()
	cam.Interval = time.Millisecond
	return cam
}

func TestWorker_PublishesPositions(t *testing.T) {
	cam := testCamera()
	cam.MoveTo(image.Pt(540, 540))
	w := NewWorker(cam, NewTracker(DefaultTrackerParams()), &Slot{}, monitoring.NewMetrics())

	require.NoError(t, w.Start())
	defer w.Stop()

	var snap Snapshot
	require.Eventually(t, func() bool {
		var ok bool
		snap, ok = w.Slot().Latest()
		return ok
	}, 5*time.Second, 5*time.Millisecond)

	assertNear(t, image.Pt(350, 349), snap.Position)
	assert.Equal(t, image.Rect(0, 0, 700, 700), snap.Frame.Bounds())
	assert.False(t, snap.Captured.IsZero())
}

func TestWorker_StartStopIdempotent(t *testing.T) {
	cam := testCamera()
	w := NewWorker(cam, NewTracker(DefaultTrackerParams()), &Slot{}, nil)

	assert.NoError(t, w.Stop(), "stop before start")
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	assert.True(t, w.Running())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.Running())

	opens, closes := cam.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)

	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	opens, closes = cam.Counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 2, closes)
}

func TestWorker_OpenFailureIsFatal(t *testing.T) {
	cam := testCamera()
	cam.FailOpen = true
	w := NewWorker(cam, NewTracker(DefaultTrackerParams()), &Slot{}, nil)

	err := w.Start()
	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.False(t, w.Running())
	_, ok := w.Slot().Latest()
	assert.False(t, ok)
}

func TestWorker_SkipsMissedFrames(t *testing.T) {
	cam := testCamera()
	cam.MissEvery = 2
	w := NewWorker(cam, NewTracker(DefaultTrackerParams()), &Slot{}, nil)

	require.NoError(t, w.Start())
	defer w.Stop()

	require.Eventually(t, func() bool {
		snap, ok := w.Slot().Latest()
		return ok && snap.Seq >= 3
	}, 5*time.Second, 5*time.Millisecond)
}

func TestWorker_MissBackoffFollowsClock(t *testing.T) {
	cam := testCamera()
	cam.MissEvery = 1
	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	w := NewWorker(cam, NewTracker(DefaultTrackerParams()), &Slot{}, nil)
	w.SetClock(clock)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, cam.Reads())

	// Without the clock moving the worker stays parked in the backoff.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, cam.Reads())

	clock.Advance(missBackoff)
	require.Eventually(t, func() bool { return cam.Reads() == 2 && clock.Waiters() == 1 }, 5*time.Second, time.Millisecond)

	// Stop interrupts a pending backoff.
	require.NoError(t, w.Stop())
	assert.False(t, w.Running())
}

func TestVideoCamera_Unavailable(t *testing.T) {
	cam := NewVideoCamera("/nonexistent/video-device", 1080, 1080)
	err := cam.Open()
	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.ErrorIs(t, cam.Read(nil), ErrCameraClosed)
	assert.NoError(t, cam.Close())
}

func TestSyntheticCamera_ReadBeforeOpen(t *testing.T) {
	cam := testCamera()
	assert.ErrorIs(t, cam.Read(nil), ErrCameraClosed)
}

func TestOrbitPath(t *testing.T) {
	path := OrbitPath(image.Pt(100, 100), 50, 4)
	assert.Equal(t, image.Pt(150, 100), path(0))
	assert.Equal(t, image.Pt(100, 150), path(1))
	assert.Equal(t, image.Pt(50, 100), path(2))
	assert.Equal(t, path(0), path(4))
}
