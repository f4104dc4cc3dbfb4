package session

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/edumag/edumag/internal/mst"
	"github.com/edumag/edumag/internal/vision"
)

// Target placement for the chase, in region-of-interest pixels.
var (
	chaseCentre    = mst.Point{X: 350, Y: 350}
	targetColor    = color.RGBA{R: 255, A: 255}
	chaseMaxRadius = 80.0
)

// TargetChase is the countdown game: steer the marker onto the target, at
// which point a new target appears nearby and the score goes up.
type TargetChase struct {
	overlay   *vision.Overlay
	rng       *rand.Rand
	duration  time.Duration
	tolerance float64

	mu      sync.Mutex
	started time.Time
	now     time.Time
	target  mst.Point
	score   int
}

func NewTargetChase(duration time.Duration, tolerance float64, rng *rand.Rand) *TargetChase {
	return &TargetChase{
		overlay:   vision.NewOverlay(),
		rng:       rng,
		duration:  duration,
		tolerance: tolerance,
	}
}

func (c *TargetChase) Kind() Kind               { return KindTargetChase }
func (c *TargetChase) Overlay() *vision.Overlay { return c.overlay }
func (c *TargetChase) ManualField() bool        { return true }

func (c *TargetChase) Start(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started, c.now = now, now
	c.score = 0
	c.target = chaseCentre
	c.overlay.Clear()
	return nil
}

// Tick draws the target and scores a hit. The game ends once the duration
// has elapsed.
func (c *TargetChase) Tick(tc TickContext) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = tc.Now
	if tc.Now.Sub(c.started) > c.duration {
		c.overlay.Clear()
		return true
	}
	if tc.Position.Found {
		p := mst.Point{X: float64(tc.Position.X), Y: float64(tc.Position.Y)}
		if p.Dist(c.target) <= c.tolerance {
			c.target = c.nextTarget()
			c.score++
		}
	}
	c.overlay.SetPoints([]vision.Mark{{At: pixel(c.target), Color: targetColor}})
	return false
}

func (c *TargetChase) nextTarget() mst.Point {
	phi := c.rng.Float64() * 2 * math.Pi
	r := c.rng.Float64() * chaseMaxRadius
	return mst.Point{X: r*math.Cos(phi) + chaseCentre.X, Y: r*math.Sin(phi) + chaseCentre.Y}
}

// Target is the point currently being chased.
func (c *TargetChase) Target() mst.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Remaining is the countdown as of the last tick, never negative.
func (c *TargetChase) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(c.duration-c.now.Sub(c.started), 0)
}

func (c *TargetChase) Stop() {
	c.overlay.Clear()
}

func (c *TargetChase) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Kind: KindTargetChase, Score: c.score}
}

func pixel(p mst.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
