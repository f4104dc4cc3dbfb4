package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/timeutil"
	"github.com/edumag/edumag/internal/vision"
)

// DefaultInterval is the control tick period.
const DefaultInterval = 100 * time.Millisecond

// Record is a finished session as kept in history.
type Record struct {
	ID      string
	Kind    Kind
	Started time.Time
	Ended   time.Time
	Score   int
	Detail  string
}

// Recorder persists finished sessions.
type Recorder interface {
	RecordSession(ctx context.Context, rec Record) error
}

// LoopConfig wires a Loop. Session and Field are required; a nil Slot or
// Input means no camera or no operator, and a nil Clock is the wall clock.
type LoopConfig struct {
	Session  Session
	Field    *FieldController
	Slot     *vision.Slot
	Input    input.Source
	Clock    timeutil.Clock
	Interval time.Duration
	Recorder Recorder
	Metrics  *monitoring.Metrics
}

// View is what the display surface needs for one frame.
type View struct {
	Snapshot    vision.Snapshot
	HasSnapshot bool
	Overlay     *vision.Overlay
}

// Status is a point-in-time summary of the loop.
type Status struct {
	Session  string      `json:"session"`
	Running  bool        `json:"running"`
	Ticks    uint64      `json:"ticks"`
	Missed   uint64      `json:"missed_ticks"`
	Position string      `json:"position"`
	FrameSeq uint64      `json:"frame_seq"`
	Score    int         `json:"score"`
	Detail   string      `json:"detail,omitempty"`
	Field    FieldStatus `json:"field"`
}

// Loop drives one session on a fixed tick. The session is only touched
// with mu held, so admin handlers can act on it between ticks.
type Loop struct {
	cfg LoopConfig

	mu       sync.Mutex
	running  bool
	started  time.Time
	lastTick time.Time
	ticks    uint64
	missed   uint64
	lastPos  vision.Position
	lastSeq  uint64
}

var ErrLoopRunning = errors.New("session: loop already running")

func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Session == nil {
		return nil, errors.New("session: loop needs a session")
	}
	if cfg.Field == nil {
		return nil, errors.New("session: loop needs a field controller")
	}
	if cfg.Slot == nil {
		cfg.Slot = &vision.Slot{}
	}
	if cfg.Input == nil {
		cfg.Input = input.NewMailbox()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Loop{cfg: cfg, lastPos: vision.NotFound}, nil
}

// Session returns the session being driven.
func (l *Loop) Session() Session { return l.cfg.Session }

// Field returns the loop's field controller.
func (l *Loop) Field() *FieldController { return l.cfg.Field }

// Start starts the session. Run calls it; tests driving Step call it
// directly.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrLoopRunning
	}
	now := l.cfg.Clock.Now()
	if err := l.cfg.Session.Start(now); err != nil {
		return fmt.Errorf("start %s session: %w", l.cfg.Session.Kind(), err)
	}
	l.running = true
	l.started = now
	l.lastTick = time.Time{}
	monitoring.Logf("session: %s started", l.cfg.Session.Kind())
	return nil
}

// Run starts the session and ticks it until it finishes or ctx is done,
// then stops it, zeroes the coils and records the result.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	ticker := l.cfg.Clock.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Finish(context.WithoutCancel(ctx))
			return nil
		case now := <-ticker.C():
			if l.Step(now) {
				l.Finish(ctx)
				return nil
			}
		}
	}
}

// Step runs one tick and reports whether the session finished.
func (l *Loop) Step(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return true
	}
	begin := l.cfg.Clock.Now()
	l.countMissedLocked(now)

	pos := vision.NotFound
	if snap, ok := l.cfg.Slot.Latest(); ok {
		pos = snap.Position
		l.lastSeq = snap.Seq
	}
	l.lastPos = pos
	st := l.cfg.Input.Poll()

	s := l.cfg.Session
	if s.ManualField() {
		if err := l.cfg.Field.Apply(st); err != nil {
			monitoring.Logf("session: field: %v", err)
		}
	}
	done := s.Tick(TickContext{Now: now, Position: pos, Input: st, Field: l.cfg.Field})
	l.ticks++

	elapsed := l.cfg.Clock.Since(begin)
	l.cfg.Metrics.Tick(s.Kind().String(), elapsed.Seconds())
	if elapsed > l.cfg.Interval {
		monitoring.Debugf("session: tick took %s", elapsed)
	}
	return done
}

// countMissedLocked counts tick periods that passed without a tick, as
// happens when a slow serial round trip overruns the period.
func (l *Loop) countMissedLocked(now time.Time) {
	if !l.lastTick.IsZero() {
		gap := now.Sub(l.lastTick)
		if gap >= 2*l.cfg.Interval {
			n := uint64(gap/l.cfg.Interval) - 1
			l.missed += n
			for range n {
				l.cfg.Metrics.TickMissed()
			}
		}
	}
	l.lastTick = now
}

// Finish stops the session, clears its overlay, resets the coils and
// records the result. It is a no-op when the loop is not running.
func (l *Loop) Finish(ctx context.Context) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	s := l.cfg.Session
	s.Stop()
	s.Overlay().Clear()
	l.running = false
	res := s.Result()
	rec := Record{
		ID:      uuid.NewString(),
		Kind:    s.Kind(),
		Started: l.started,
		Ended:   l.cfg.Clock.Now(),
		Score:   res.Score,
		Detail:  res.Detail,
	}
	l.mu.Unlock()

	if err := l.cfg.Field.Reset(); err != nil {
		monitoring.Logf("session: %v", err)
	}
	monitoring.Logf("session: %s finished, score %d", rec.Kind, rec.Score)
	if l.cfg.Recorder != nil {
		if err := l.cfg.Recorder.RecordSession(ctx, rec); err != nil {
			monitoring.Logf("session: record %s: %v", rec.ID, err)
		}
	}
}

// Do runs f against the session between ticks.
func (l *Loop) Do(f func(Session) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return f(l.cfg.Session)
}

// Latest returns the newest snapshot with the session's overlay.
func (l *Loop) Latest() View {
	snap, ok := l.cfg.Slot.Latest()
	return View{Snapshot: snap, HasSnapshot: ok, Overlay: l.cfg.Session.Overlay()}
}

// Status summarises the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := l.cfg.Session.Result()
	return Status{
		Session:  l.cfg.Session.Kind().String(),
		Running:  l.running,
		Ticks:    l.ticks,
		Missed:   l.missed,
		Position: l.lastPos.String(),
		FrameSeq: l.lastSeq,
		Score:    res.Score,
		Detail:   res.Detail,
		Field:    l.cfg.Field.Status(),
	}
}
