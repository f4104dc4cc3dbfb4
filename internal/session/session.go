// Package session runs the operator-facing control modes. Each mode is a
// Session driven by a Loop on a fixed tick: the loop pulls the latest
// tracked position, polls decoded input, steers the field and hands the
// tick to the session.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/mst"
	"github.com/edumag/edumag/internal/vision"
)

// Kind selects a session implementation.
type Kind int

const (
	KindFreeControl Kind = iota
	KindTargetChase
	KindCommandSequence
	KindPaint
	KindRouteDesigner
)

var kindNames = [...]string{
	KindFreeControl:     "free",
	KindTargetChase:     "chase",
	KindCommandSequence: "sequence",
	KindPaint:           "paint",
	KindRouteDesigner:   "route",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindFreeControl, nil
	}
	for k, name := range kindNames {
		if s == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown session %q (want one of %s)", s, strings.Join(kindNames[:], ", "))
}

// TickContext is what a session sees on one tick.
type TickContext struct {
	Now time.Time
	// Position is NotFound until the camera has produced a snapshot and
	// whenever the marker is lost.
	Position vision.Position
	Input    input.State
	Field    *FieldController
}

// Result summarises a session for display and history.
type Result struct {
	Kind   Kind
	Score  int
	Detail string
}

// Session is one control mode. Start, Tick and Stop are only called from
// the loop goroutine; Overlay may be read concurrently.
type Session interface {
	Kind() Kind
	Start(now time.Time) error
	// Tick advances the session and reports whether it has finished.
	Tick(tc TickContext) bool
	Stop()
	Overlay() *vision.Overlay
	Result() Result
	// ManualField reports whether the operator steers the field with the
	// stick. Sessions that command the field themselves return false.
	ManualField() bool
}

// Options configures New. Zero values select defaults.
type Options struct {
	Duration        time.Duration
	TargetTolerance float64
	NodeTolerance   float64
	Difficulty      mst.Difficulty
	Steps           []Step
	Solver          *fieldsolver.Solver
	Rand            *rand.Rand
}

// Defaults used when Options leaves a field zero.
const (
	DefaultDuration        = 60 * time.Second
	DefaultTargetTolerance = 15.0
	DefaultNodeTolerance   = 20.0
)

var ErrUnknownKind = errors.New("session: unknown kind")

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.TargetTolerance <= 0 {
		o.TargetTolerance = DefaultTargetTolerance
	}
	if o.NodeTolerance <= 0 {
		o.NodeTolerance = DefaultNodeTolerance
	}
	if o.Solver == nil {
		o.Solver = fieldsolver.NewSolver(fieldsolver.DefaultCalibration())
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// New builds the session for kind.
func New(kind Kind, opts Options) (Session, error) {
	opts = opts.withDefaults()
	switch kind {
	case KindFreeControl:
		return NewFreeControl(), nil
	case KindTargetChase:
		return NewTargetChase(opts.Duration, opts.TargetTolerance, opts.Rand), nil
	case KindCommandSequence:
		seq := NewCommandSequence(opts.Solver)
		for i, st := range opts.Steps {
			if err := seq.Add(st); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		return seq, nil
	case KindPaint:
		return NewPaint(), nil
	case KindRouteDesigner:
		return NewRouteDesigner(opts.Difficulty, opts.NodeTolerance, opts.Rand), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
}

// FreeControl is the plain steering mode: the operator moves the marker
// with the stick and nothing is scored.
type FreeControl struct {
	overlay *vision.Overlay
	last    vision.Position
}

func NewFreeControl() *FreeControl {
	return &FreeControl{overlay: vision.NewOverlay()}
}

func (f *FreeControl) Kind() Kind               { return KindFreeControl }
func (f *FreeControl) Start(time.Time) error    { f.overlay.Clear(); return nil }
func (f *FreeControl) Stop()                    { f.overlay.Clear() }
func (f *FreeControl) Overlay() *vision.Overlay { return f.overlay }
func (f *FreeControl) ManualField() bool        { return true }

func (f *FreeControl) Tick(tc TickContext) bool {
	f.last = tc.Position
	return false
}

func (f *FreeControl) Result() Result {
	return Result{Kind: KindFreeControl, Detail: "last position " + f.last.String()}
}
