package render

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

var (
	// Blue is the Main task, red the Auxiliary task.
	Blue = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	Red  = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

// SampleAlpha is the opacity of posterior sample curves.
const SampleAlpha = 0.05

const (
	truthWidth   = 1.5
	sampleWidth  = 1
	markerRadius = 3.5
	yPadFraction = 0.05
)

func translucent(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(alpha * 255))
	return c
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// panel accumulates plotters and the y extent of everything drawn.
type panel struct {
	p          *plot.Plot
	ymin, ymax float64
}

func newPanel(title string, yLabel bool) *panel {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	if yLabel {
		p.Y.Label.Text = "y"
	}
	p.Legend.Top = true
	return &panel{p: p, ymin: math.Inf(1), ymax: math.Inf(-1)}
}

func (pn *panel) extend(ys []float64) {
	if len(ys) == 0 {
		return
	}
	pn.ymin = math.Min(pn.ymin, floats.Min(ys))
	pn.ymax = math.Max(pn.ymax, floats.Max(ys))
}

func (pn *panel) truth(label string, xs, ys []float64, c color.NRGBA) error {
	l, err := plotter.NewLine(xys(xs, ys))
	if err != nil {
		return errors.Wrapf(err, "ground truth %q", label)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(truthWidth)
	l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	pn.p.Add(l)
	pn.p.Legend.Add(label, l)
	pn.extend(ys)
	return nil
}

func (pn *panel) observations(xs, ys []float64, c color.NRGBA) error {
	if len(xs) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys(xs, ys))
	if err != nil {
		return errors.Wrap(err, "observations")
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(markerRadius)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	pn.p.Add(s)
	pn.extend(ys)
	return nil
}

func (pn *panel) samples(xs []float64, curves [][]float64, c color.NRGBA) error {
	faded := translucent(c, SampleAlpha)
	for i, ys := range curves {
		l, err := plotter.NewLine(xys(xs, ys))
		if err != nil {
			return errors.Wrapf(err, "posterior sample %d", i)
		}
		l.LineStyle.Color = faded
		l.LineStyle.Width = vg.Points(sampleWidth)
		pn.p.Add(l)
		pn.extend(ys)
	}
	return nil
}

// Panels builds the "Single-Task" and "Multitask" plots for res. Both
// panels share one y range and have x fixed to [0,1].
func Panels(res *pipeline.Result) ([]*plot.Plot, error) {
	if res == nil || res.Data == nil {
		return nil, errors.NewValueError("render.Panels", "nil result")
	}
	data, grid := res.Data, res.Grid

	single := newPanel("Single-Task", true)
	if err := single.truth("Main Task", grid, res.TruthMain, Blue); err != nil {
		return nil, err
	}
	if err := single.observations(data.MainX, data.MainY, Blue); err != nil {
		return nil, err
	}
	if err := single.samples(grid, res.SingleTask, Blue); err != nil {
		return nil, err
	}
	if !res.HasSingleTask() {
		single.p.Legend.Add("model skipped: too few Main observations")
	}

	multi := newPanel("Multitask", false)
	if err := multi.truth("Auxiliary Task", grid, res.TruthAux, Red); err != nil {
		return nil, err
	}
	if err := multi.truth("Main Task", grid, res.TruthMain, Blue); err != nil {
		return nil, err
	}
	if err := multi.observations(data.AuxX, data.AuxY, Red); err != nil {
		return nil, err
	}
	if err := multi.observations(data.MainX, data.MainY, Blue); err != nil {
		return nil, err
	}
	if err := multi.samples(grid, res.MultiTaskAux, Red); err != nil {
		return nil, err
	}
	if err := multi.samples(grid, res.MultiTaskMain, Blue); err != nil {
		return nil, err
	}

	ymin := math.Min(single.ymin, multi.ymin)
	ymax := math.Max(single.ymax, multi.ymax)
	pad := yPadFraction * (ymax - ymin)
	if pad == 0 {
		pad = 1
	}
	panels := []*plot.Plot{single.p, multi.p}
	for _, p := range panels {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = ymin-pad, ymax+pad
	}
	return panels, nil
}
