// Package fieldmap previews the net magnetic field the coils produce over
// the workspace for a given current vector. The per-coil field maps are
// sampled offline on a grid and loaded from CSV.
package fieldmap

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/fsutil"
)

// teslaToMilli converts the stored per-ampere fields to mT.
const teslaToMilli = 1000

var ErrNoSamples = errors.New("fieldmap: no samples")

// Vector is the net field at one sample point, in mT.
type Vector struct {
	X, Y   float64
	BX, BY float64
}

// Magnitude is |B| at the point.
func (v Vector) Magnitude() float64 { return math.Hypot(v.BX, v.BY) }

// Map holds each coil's field per ampere at every sample point.
type Map struct {
	x, y   []float64
	bx, by *mat.Dense // samples × coils, mT/A
	xs, ys []float64  // distinct grid coordinates, ascending
	index  map[[2]float64]int
}

var xColumns = [4]string{"B1X", "B2X", "B3X", "B4X"}
var yColumns = [4]string{"B1Y", "B2Y", "B3Y", "B4Y"}

// Load reads a field map from path on fsys.
func Load(fsys fsutil.FileSystem, path string) (*Map, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field map: %w", err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads CSV with a header naming the columns X, Y, B1X..B4X and
// B1Y..B4Y in any order. Field values are tesla per ampere.
func Parse(r io.Reader) (*Map, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoSamples
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	want := append([]string{"X", "Y"}, append(xColumns[:], yColumns[:]...)...)
	idx := make([]int, len(want))
	for i, name := range want {
		c, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
		idx[i] = c
	}

	var rows [][]float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(idx))
		for i, c := range idx {
			if vals[i], err = strconv.ParseFloat(strings.TrimSpace(rec[c]), 64); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, want[i], err)
			}
		}
		rows = append(rows, vals)
	}
	if len(rows) == 0 {
		return nil, ErrNoSamples
	}

	n := len(rows)
	m := &Map{
		x:     make([]float64, n),
		y:     make([]float64, n),
		bx:    mat.NewDense(n, 4, nil),
		by:    mat.NewDense(n, 4, nil),
		index: make(map[[2]float64]int, n),
	}
	for i, row := range rows {
		m.x[i], m.y[i] = row[0], row[1]
		for k := range 4 {
			m.bx.Set(i, k, row[2+k]*teslaToMilli)
			m.by.Set(i, k, row[6+k]*teslaToMilli)
		}
		m.index[[2]float64{row[0], row[1]}] = i
	}
	m.xs = distinct(m.x)
	m.ys = distinct(m.y)
	return m, nil
}

func distinct(v []float64) []float64 {
	out := append([]float64(nil), v...)
	sort.Float64s(out)
	j := 0
	for i := range out {
		if i == 0 || out[i] != out[j-1] {
			out[j] = out[i]
			j++
		}
	}
	return out[:j]
}

// Len is the number of sample points.
func (m *Map) Len() int { return len(m.x) }

// Net returns the superposed field of all four coils at every sample
// point for currents cur.
func (m *Map) Net(cur fieldsolver.CurrentVector) []Vector {
	i := mat.NewVecDense(4, cur[:])
	var bx, by mat.VecDense
	bx.MulVec(m.bx, i)
	by.MulVec(m.by, i)

	out := make([]Vector, m.Len())
	for k := range out {
		out[k] = Vector{X: m.x[k], Y: m.y[k], BX: bx.AtVec(k), BY: by.AtVec(k)}
	}
	return out
}

// Range returns the smallest and largest net field magnitude.
func Range(vs []Vector) (lo, hi float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		mag := v.Magnitude()
		lo = math.Min(lo, mag)
		hi = math.Max(hi, mag)
	}
	return lo, hi
}
