// Package fieldsolver converts a requested field/force/direction triple
// into the four coil currents that produce it, using a linear calibration
// model of the coil array.
package fieldsolver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxCurrent is the hardware ceiling in amps for any single coil.
const MaxCurrent = 4.0

// pinvRcond matches the default relative singular-value cutoff used for
// Moore-Penrose pseudo-inverses in the calibration tooling.
const pinvRcond = 1e-15

// CurrentVector holds one signed current (amps) per coil.
type CurrentVector [4]float64

// Zero is the no-actuation vector.
var Zero CurrentVector

// IsZero reports whether every coil current is exactly zero.
func (c CurrentVector) IsZero() bool { return c == Zero }

// MaxAbs returns the largest absolute coil current.
func (c CurrentVector) MaxAbs() float64 {
	var m float64
	for _, v := range c {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// Safe reports whether every component is finite and within MaxCurrent.
func (c CurrentVector) Safe() bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCurrent {
			return false
		}
	}
	return true
}

func (c CurrentVector) String() string {
	return fmt.Sprintf("I1=%.2fA I2=%.2fA I3=%.2fA I4=%.2fA", c[0], c[1], c[2], c[3])
}

// Outcome classifies how a Solve call arrived at its result.
type Outcome int

const (
	// Idle means no field was requested (B = 0).
	Idle Outcome = iota
	// Solved means the computed currents are within the hardware ceiling.
	Solved
	// Degenerate means the system could not be solved numerically.
	Degenerate
	// OverLimit means a computed current exceeded MaxCurrent.
	OverLimit
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Solved:
		return "solved"
	case Degenerate:
		return "degenerate"
	case OverLimit:
		return "over-limit"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Solver maps field requests to coil currents for a fixed calibration.
// It holds no mutable state and is safe for concurrent use.
type Solver struct {
	cal Calibration
}

// NewSolver returns a Solver for cal.
func NewSolver(cal Calibration) *Solver {
	return &Solver{cal: cal}
}

// Calibration returns the solver's calibration constants.
func (s *Solver) Calibration() Calibration { return s.cal }

// Solve returns the coil currents producing a field of bMilliTesla and a
// collinear force of fMilliNewton along thetaDeg. Any request that cannot be
// met safely yields the zero vector.
func (s *Solver) Solve(bMilliTesla, fMilliNewton, thetaDeg float64) CurrentVector {
	i, _ := s.SolveDetailed(bMilliTesla, fMilliNewton, thetaDeg)
	return i
}

// SolveDetailed is Solve with the Outcome that produced the result.
func (s *Solver) SolveDetailed(bMilliTesla, fMilliNewton, thetaDeg float64) (CurrentVector, Outcome) {
	b := bMilliTesla / 1000
	f := fMilliNewton / 1000
	if b == 0 {
		return Zero, Idle
	}

	theta := thetaDeg * math.Pi / 180
	ux, uy := math.Cos(theta), math.Sin(theta)

	target := mat.NewVecDense(4, []float64{
		round3(ux * b),
		round3(uy * b),
		round3(ux * f),
		round3(uy * f),
	})
	system := s.cal.System(ux, uy)
	if !finite(system) {
		return Zero, Degenerate
	}

	pinv, ok := pseudoInverse(system)
	if !ok {
		return Zero, Degenerate
	}
	var sol mat.VecDense
	sol.MulVec(pinv, target)

	var out CurrentVector
	for k := range out {
		v := round3(sol.AtVec(k))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Zero, Degenerate
		}
		out[k] = v
	}
	if !out.Safe() {
		return Zero, OverLimit
	}
	return out, Solved
}

// pseudoInverse computes the Moore-Penrose inverse of m through its SVD,
// discarding singular values at or below pinvRcond times the largest.
func pseudoInverse(m mat.Matrix) (*mat.Dense, bool) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, false
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var largest float64
	for _, sv := range values {
		if math.IsNaN(sv) || math.IsInf(sv, 0) {
			return nil, false
		}
		largest = math.Max(largest, sv)
	}
	cutoff := pinvRcond * largest

	r, c := m.Dims()
	inv := make([]float64, len(values))
	for k, sv := range values {
		if sv > cutoff {
			inv[k] = 1 / sv
		}
	}
	// pinv = V * diag(inv) * U^T
	var vs mat.Dense
	vs.Apply(func(_, j int, x float64) float64 { return x * inv[j] }, v.Slice(0, c, 0, len(values)))
	var out mat.Dense
	out.Mul(&vs, u.Slice(0, r, 0, len(values)).T())
	return &out, true
}

func finite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// round3 rounds half to even at three decimal places.
func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}

// MaxForceForField returns the largest force (mN) attainable at field
// strength bMilliTesla, from the calibration's affine fit.
func MaxForceForField(bMilliTesla float64) float64 {
	return -38.5633*bMilliTesla + 997.3362
}

// ForceCeiling is the operator-facing force limit: ninety percent of
// MaxForceForField, never negative.
func ForceCeiling(bMilliTesla float64) float64 {
	return math.Max(0, 0.9*MaxForceForField(bMilliTesla))
}
