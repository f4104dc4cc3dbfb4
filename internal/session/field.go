package session

import (
	"fmt"
	"math"
	"sync"

	"github.com/edumag/edumag/internal/coildriver"
	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/monitoring"
)

// DefaultMaxField is the strongest field the operator may request, in mT.
const DefaultMaxField = 24.0

// forceShare is the fraction of the attainable force requested along with
// the field.
const forceShare = 0.3

// FieldStatus is a snapshot of the controller for display.
type FieldStatus struct {
	Field    float64                   `json:"field_mt"`
	Force    float64                   `json:"force_mn"`
	Theta    int                       `json:"theta_deg"`
	Active   bool                      `json:"active"`
	Currents fieldsolver.CurrentVector `json:"currents"`
}

// FieldController turns operator input into coil commands. It owns the
// zero-current latch: when input drops into the dead zone a reset is sent
// once, and not again until a direction has been commanded.
type FieldController struct {
	solver   *fieldsolver.Solver
	driver   coildriver.Driver
	metrics  *monitoring.Metrics
	maxField float64

	mu       sync.Mutex
	field    float64
	force    float64
	theta    int
	active   bool
	zeroSent bool
	last     fieldsolver.CurrentVector
	haveLast bool
}

// NewFieldController returns a controller at zero field. A nil driver
// means no board is attached; maxField <= 0 selects DefaultMaxField.
func NewFieldController(solver *fieldsolver.Solver, driver coildriver.Driver, maxField float64, metrics *monitoring.Metrics) *FieldController {
	if solver == nil {
		solver = fieldsolver.NewSolver(fieldsolver.DefaultCalibration())
	}
	if driver == nil {
		driver = coildriver.DisabledDriver{}
	}
	if maxField <= 0 {
		maxField = DefaultMaxField
	}
	f := &FieldController{solver: solver, driver: driver, metrics: metrics, maxField: maxField}
	f.force = forceFor(0)
	return f
}

func forceFor(b float64) float64 {
	return forceShare * fieldsolver.MaxForceForField(b)
}

// Solver is the solver used for every command.
func (f *FieldController) Solver() *fieldsolver.Solver { return f.solver }

// MaxField is the upper bound on the requested field.
func (f *FieldController) MaxField() float64 { return f.maxField }

// SetField sets the requested field strength, clamped to [0, MaxField],
// and moves the force to follow it.
func (f *FieldController) SetField(b float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setFieldLocked(b)
}

func (f *FieldController) setFieldLocked(b float64) {
	f.field = math.Min(math.Max(b, 0), f.maxField)
	f.force = forceFor(f.field)
}

// Status returns the current request and the last currents sent.
func (f *FieldController) Status() FieldStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FieldStatus{Field: f.field, Force: f.force, Theta: f.theta, Active: f.active, Currents: f.last}
}

// Apply handles one tick of operator input. An active stick commands the
// field at the strength held before this tick's trigger is applied; a
// neutral stick resets the coils once. The trigger then nudges the
// strength for the next tick.
func (f *FieldController) Apply(st input.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if st.Stick.Active {
		f.theta = st.Stick.Degrees
		f.active = true
		err = f.commandLocked(f.field, f.force, f.theta)
		f.zeroSent = false
	} else {
		f.active = false
		if !f.zeroSent {
			if err = f.resetLocked(); err == nil {
				f.zeroSent = true
			}
		}
	}
	if st.Trigger != 0 {
		f.setFieldLocked(f.field + st.Trigger)
	}
	return err
}

// Command solves for (b, force, theta) and sends the currents unless they
// equal the last vector sent.
func (f *FieldController) Command(b, force float64, theta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commandLocked(b, force, theta)
}

func (f *FieldController) commandLocked(b, force float64, theta int) error {
	cur, outcome := f.solver.SolveDetailed(b, force, float64(theta))
	switch outcome {
	case fieldsolver.OverLimit, fieldsolver.Degenerate:
		f.metrics.SafetyCollapsed()
		monitoring.Debugf("session: %s request B=%.2f F=%.2f θ=%d collapsed to zero", outcome, b, force, theta)
	}
	if f.haveLast && cur == f.last {
		return nil
	}
	if err := f.driver.SetTargetCurrents(cur); err != nil {
		return fmt.Errorf("send currents %s: %w", cur, err)
	}
	f.last, f.haveLast = cur, true
	return nil
}

// Reset zeroes the coils. The zero vector then counts as the last one sent.
func (f *FieldController) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetLocked()
}

func (f *FieldController) resetLocked() error {
	if err := f.driver.Reset(); err != nil {
		return fmt.Errorf("reset coils: %w", err)
	}
	f.last, f.haveLast = fieldsolver.Zero, true
	return nil
}
