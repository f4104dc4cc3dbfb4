package fieldsolver

import "gonum.org/v1/gonum/mat"

// Calibration holds the coil array's linear response per unit current:
// field (T/A), field gradient along x and along y. Rows are the x and y
// components, columns are coils 1-4.
type Calibration struct {
	Field [2][4]float64
	GradX [2][4]float64
	GradY [2][4]float64
}

// DefaultCalibration returns the constants measured for the production
// coil array.
func DefaultCalibration() Calibration {
	return Calibration{
		Field: [2][4]float64{
			{-0.00340, -0.00030, 0.00340, 0.00030},
			{-0.00030, 0.00340, 0.00030, -0.00340},
		},
		GradX: [2][4]float64{
			{-0.23960, 0.16450, -0.23960, 0.16450},
			{-0.00620, 0.00680, -0.00620, 0.00680},
		},
		GradY: [2][4]float64{
			{-0.00680, 0.00620, -0.00680, 0.00620},
			{0.16450, -0.23960, 0.16450, -0.23960},
		},
	}
}

// System stacks the 4x4 matrix mapping coil currents to (Bx, By, Fx, Fy)
// for a unit direction (ux, uy): the two field rows, then u·GradX, then
// u·GradY.
func (c Calibration) System(ux, uy float64) *mat.Dense {
	data := make([]float64, 0, 16)
	data = append(data, c.Field[0][:]...)
	data = append(data, c.Field[1][:]...)
	for _, g := range [][2][4]float64{c.GradX, c.GradY} {
		for k := 0; k < 4; k++ {
			data = append(data, ux*g[0][k]+uy*g[1][k])
		}
	}
	return mat.NewDense(4, 4, data)
}
