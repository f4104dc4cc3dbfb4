package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/vision"
)

// ErrInvalidStep is returned by ParseSteps for malformed text and by
// CommandSequence.Add for a step that would not move anything.
var ErrInvalidStep = errors.New("session: invalid step")

// Step is one entry of a timed field program.
type Step struct {
	Field float64       `json:"field_mt"`
	Force float64       `json:"force_mn"`
	Theta int           `json:"theta_deg"`
	Hold  time.Duration `json:"hold"`
}

func (s Step) String() string {
	return fmt.Sprintf("B=%g F=%g θ=%d for %s", s.Field, s.Force, s.Theta, s.Hold)
}

// ParseSteps reads a program written as "B,F,theta,seconds" entries
// separated by semicolons.
func ParseSteps(s string) ([]Step, error) {
	var steps []Step
	for i, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: step %d: want B,F,theta,seconds, got %q", ErrInvalidStep, i+1, entry)
		}
		var vals [4]float64
		for j, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidStep, i+1, err)
			}
			vals[j] = v
		}
		steps = append(steps, Step{
			Field: vals[0],
			Force: vals[1],
			Theta: int(vals[2]),
			Hold:  time.Duration(vals[3] * float64(time.Second)),
		})
	}
	return steps, nil
}

// CommandSequence plays a queued field program. Each step is commanded
// and held for its duration; the coils are reset at the end. Pausing
// resets the coils and abandons the run; Start replays from the top.
type CommandSequence struct {
	solver  *fieldsolver.Solver
	overlay *vision.Overlay

	mu        sync.Mutex
	steps     []Step
	running   bool
	index     int
	issued    bool
	stepStart time.Time
	completed int
	runs      int
}

func NewCommandSequence(solver *fieldsolver.Solver) *CommandSequence {
	return &CommandSequence{solver: solver, overlay: vision.NewOverlay()}
}

func (q *CommandSequence) Kind() Kind               { return KindCommandSequence }
func (q *CommandSequence) Overlay() *vision.Overlay { return q.overlay }
func (q *CommandSequence) ManualField() bool        { return false }

// Add appends st. Steps with no hold time, no field, or currents the
// hardware cannot carry are refused.
func (q *CommandSequence) Add(st Step) error {
	if st.Hold <= 0 {
		return fmt.Errorf("%w: hold must be positive", ErrInvalidStep)
	}
	if st.Field == 0 {
		return fmt.Errorf("%w: field must be non-zero", ErrInvalidStep)
	}
	if q.solver.Solve(st.Field, st.Force, float64(st.Theta)).IsZero() {
		return fmt.Errorf("%w: %s exceeds the current limit", ErrInvalidStep, st)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steps = append(q.steps, st)
	return nil
}

// Remove deletes the step at index i.
func (q *CommandSequence) Remove(i int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.steps) {
		return fmt.Errorf("session: no step %d", i)
	}
	q.steps = append(q.steps[:i], q.steps[i+1:]...)
	return nil
}

// Clear deletes every step.
func (q *CommandSequence) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steps = nil
}

// Steps returns a copy of the program.
func (q *CommandSequence) Steps() []Step {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Step(nil), q.steps...)
}

// Running reports whether a run is in progress.
func (q *CommandSequence) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start begins a run from the first step.
func (q *CommandSequence) Start(now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.execute(now)
	return nil
}

func (q *CommandSequence) execute(now time.Time) {
	q.running = len(q.steps) > 0
	q.index = 0
	q.issued = false
	q.stepStart = now
	q.completed = 0
	q.runs++
}

// Tick issues the current step, advances once its hold expires and
// finishes after the last step. Start replays the program; B pauses it.
func (q *CommandSequence) Tick(tc TickContext) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if tc.Input.Has(input.ButtonStart) {
		q.execute(tc.Now)
	}
	if tc.Input.Has(input.ButtonB) && q.running {
		q.running = false
		monitoring.Logf("session: sequence paused at step %d", q.index+1)
		q.resetField(tc.Field)
		return false
	}
	if !q.running {
		return false
	}
	if q.index >= len(q.steps) {
		q.running = false
		q.resetField(tc.Field)
		return true
	}

	if q.issued && tc.Now.Sub(q.stepStart) >= q.steps[q.index].Hold {
		q.completed++
		q.index++
		q.issued = false
		q.stepStart = tc.Now
		if q.index >= len(q.steps) {
			q.running = false
			q.resetField(tc.Field)
			return true
		}
	}
	if !q.issued {
		st := q.steps[q.index]
		if tc.Field != nil {
			if err := tc.Field.Command(st.Field, st.Force, st.Theta); err != nil {
				monitoring.Logf("session: step %d: %v", q.index+1, err)
			}
		}
		q.issued = true
		q.stepStart = tc.Now
	}
	return false
}

func (q *CommandSequence) resetField(f *FieldController) {
	if f == nil {
		return
	}
	if err := f.Reset(); err != nil {
		monitoring.Logf("session: %v", err)
	}
}

func (q *CommandSequence) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = false
}

// Result scores the number of steps completed in the latest run.
func (q *CommandSequence) Result() Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Result{
		Kind:   KindCommandSequence,
		Score:  q.completed,
		Detail: fmt.Sprintf("%d of %d steps, run %d", q.completed, len(q.steps), q.runs),
	}
}
