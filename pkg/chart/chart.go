// Package chart renders the design charts: each derived quantity plotted
// against gm/ID with one series per channel length. These are the charts a
// designer reads to trade off speed, gain and current before committing to
// an operating point.
package chart

import (
	"fmt"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/expr"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
)

// DesignQuantities are the four chart ordinates, in render order.
var DesignQuantities = []expr.Quantity{
	expr.TransitFrequency,
	expr.IntrinsicGain,
	expr.CurrentDensity,
	expr.TransconductanceDensity,
}

// logScale marks quantities that span decades and read better on a log axis.
var logScale = map[expr.Quantity]bool{
	expr.TransitFrequency: true,
	expr.CurrentDensity:   true,
}

// Renderer draws design charts from one extracted plane.
type Renderer struct {
	Plane *table.Plane

	Width  vg.Length // zero means 6 inches
	Height vg.Length // zero means 4 inches
}

func NewRenderer(p *table.Plane) *Renderer {
	return &Renderer{Plane: p}
}

func (r *Renderer) size() (vg.Length, vg.Length) {
	w, h := r.Width, r.Height
	if w == 0 {
		w = 6 * vg.Inch
	}
	if h == 0 {
		h = 4 * vg.Inch
	}
	return w, h
}

// Render draws one quantity against gm/ID and saves it. Inadmissible
// samples are dropped per series; a series with no admissible samples is
// omitted entirely. An error is returned only when every series is empty.
func (r *Renderer) Render(q expr.Quantity, path string) error {
	gmid, err := expr.Evaluate(expr.GmOverID, r.Plane)
	if err != nil {
		return err
	}
	values, err := expr.Evaluate(q, r.Plane)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s vs gm/ID (vds=%gV, vbs=%gV)",
		r.Plane.Model, q.Label(), r.Plane.Vds, r.Plane.Vbs)
	p.X.Label.Text = "gm/ID (S/A)"
	p.Y.Label.Text = fmt.Sprintf("%s (%s)", q.Label(), q.Unit())
	if logScale[q] {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	drawn := 0
	cols := r.Plane.Cols()
	for l := 0; l < r.Plane.Rows(); l++ {
		xys := series(gmid[l*cols:(l+1)*cols], values[l*cols:(l+1)*cols], r.Plane.ValidRow(l))
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("chart %s: %w", q, err)
		}
		line.Color = plotutil.Color(drawn)
		line.Dashes = plotutil.Dashes(drawn)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("L=%.3gum", r.Plane.Length[l]*1e6), line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("chart %s: %w", q, expr.ErrNoAdmissible)
	}
	p.Legend.Top = true

	w, h := r.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// RenderAll draws the four design charts into dir and returns the written
// paths.
func (r *Renderer) RenderAll(dir string) ([]string, error) {
	paths := make([]string, 0, len(DesignQuantities))
	for _, q := range DesignQuantities {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_vs_gmid.png", r.Plane.Model, q))
		if err := r.Render(q, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// series pairs admissible (gm/ID, value) samples of one length and sorts
// them along the abscissa so line segments do not double back. Admissible
// filtering also keeps log axes safe: everything plotted is positive.
func series(gmid, values []float64, valid []bool) plotter.XYs {
	xys := make(plotter.XYs, 0, len(gmid))
	for i := range gmid {
		if !valid[i] || !expr.Admissible(gmid[i]) || !expr.Admissible(values[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: gmid[i], Y: values[i]})
	}
	sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	return xys
}
