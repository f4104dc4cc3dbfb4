package fieldmap

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/edumag/edumag/internal/fieldsolver"
)

// renderDPI converts requested pixel sizes to plot lengths.
const renderDPI = 96

// grid adapts the net field to plotter.FieldXY. Grid cells with no sample
// are zero.
type grid struct {
	m   *Map
	net []Vector
}

func (g grid) Dims() (c, r int) { return len(g.m.xs), len(g.m.ys) }
func (g grid) X(c int) float64  { return g.m.xs[c] }
func (g grid) Y(r int) float64  { return g.m.ys[r] }

func (g grid) Vector(c, r int) plotter.XY {
	i, ok := g.m.index[[2]float64{g.m.xs[c], g.m.ys[r]}]
	if !ok {
		return plotter.XY{}
	}
	return plotter.XY{X: g.net[i].BX, Y: g.net[i].BY}
}

// Plot builds the arrow plot of the net field for cur. Arrow colour runs
// from blue for no field to red at the strongest sample. With every coil
// off the plot has axes only.
func (m *Map) Plot(cur fieldsolver.CurrentVector) *plot.Plot {
	net := m.Net(cur)
	_, hi := Range(net)

	p := plot.New()
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"
	if hi == 0 {
		p.Title.Text = "No field"
		p.X.Min, p.X.Max = m.xs[0], m.xs[len(m.xs)-1]
		p.Y.Min, p.Y.Max = m.ys[0], m.ys[len(m.ys)-1]
		return p
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(1)

	f := plotter.NewField(grid{m: m, net: net})
	f.LineStyle.Width = vg.Points(0.8)
	f.DrawGlyph = func(c vg.Canvas, sty draw.LineStyle, v plotter.XY) {
		mag := math.Hypot(v.X, v.Y)
		if mag == 0 {
			return
		}
		sty.Color = colorAt(cmap, mag)
		(&draw.Canvas{Canvas: c}).SetLineStyle(sty)
		var pa vg.Path
		pa.Move(vg.Point{X: -0.5})
		pa.Line(vg.Point{X: 0.5})
		pa.Move(vg.Point{X: 0.25, Y: 0.15})
		pa.Line(vg.Point{X: 0.5})
		pa.Line(vg.Point{X: 0.25, Y: -0.15})
		c.Stroke(pa)
	}

	p.Title.Text = fmt.Sprintf("Net field, peak %.2f mT", hi)
	p.Add(f)
	return p
}

func colorAt(cmap palette.ColorMap, v float64) color.Color {
	c, err := cmap.At(math.Min(math.Max(v, 0), 1))
	if err != nil {
		return color.Black
	}
	return c
}

// Render writes the arrow plot for cur to w as a PNG of the given pixel
// size.
func (m *Map) Render(w io.Writer, cur fieldsolver.CurrentVector, widthPx, heightPx int) error {
	if widthPx <= 0 || heightPx <= 0 {
		return fmt.Errorf("fieldmap: invalid size %dx%d", widthPx, heightPx)
	}
	p := m.Plot(cur)
	px := func(n int) vg.Length { return vg.Length(n) * vg.Inch / renderDPI }
	wt, err := p.WriterTo(px(widthPx), px(heightPx), "png")
	if err != nil {
		return fmt.Errorf("fieldmap: render: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
