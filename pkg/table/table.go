package table

import (
	"fmt"
	"math"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

// Raw quantity names, matching what the simulation oracle reports.
const (
	QID    = "id"
	QGm    = "gm"
	QGds   = "gds"
	QVth   = "vth"
	QVdsat = "vdsat"
	QCgg   = "cgg"
	QCgs   = "cgs"
	QCgd   = "cgd"
)

// Quantities lists every raw array a table carries, in storage order.
var Quantities = []string{QID, QGm, QGds, QVth, QVdsat, QCgg, QCgs, QCgd}

// Table is one dense characterization of a transistor model over the
// (length, Vbs, Vgs, Vds) grid, at a fixed reference width. Axis order is
// fixed; every raw array shares the same flat layout. Built once, read-only
// afterwards. Invalid grid points hold NaN in every raw array and false in
// the Valid mask.
type Table struct {
	Model       string
	Description string
	Polarity    sweep.Polarity
	Width       float64 // reference width all points were simulated at (m)

	Length sweep.Axis
	Vbs    sweep.Axis
	Vgs    sweep.Axis
	Vds    sweep.Axis

	Data  map[string][]float64
	Valid []bool
}

// newTable allocates the arrays NaN-filled with every point invalid.
func newTable(model string, width float64, sw *sweep.Transistor) *Table {
	t := &Table{
		Model:    model,
		Polarity: sw.Polarity,
		Width:    width,
		Length:   sw.Length,
		Vbs:      sw.Vbs,
		Vgs:      sw.Vgs,
		Vds:      sw.Vds,
		Data:     make(map[string][]float64, len(Quantities)),
	}
	n := t.NumPoints()
	for _, q := range Quantities {
		arr := make([]float64, n)
		for i := range arr {
			arr[i] = math.NaN()
		}
		t.Data[q] = arr
	}
	t.Valid = make([]bool, n)
	return t
}

// Shape returns the axis lengths in storage order (L, B, G, D).
func (t *Table) Shape() (l, b, g, d int) {
	return t.Length.Len(), t.Vbs.Len(), t.Vgs.Len(), t.Vds.Len()
}

// NumPoints is the total grid size.
func (t *Table) NumPoints() int {
	l, b, g, d := t.Shape()
	return l * b * g * d
}

// Index maps a multi-index to the flat offset shared by all raw arrays.
func (t *Table) Index(l, b, g, d int) int {
	_, nb, ng, nd := t.Shape()
	return ((l*nb+b)*ng+g)*nd + d
}

// At reads one raw sample. NaN for invalid points.
func (t *Table) At(q string, l, b, g, d int) float64 {
	return t.Data[q][t.Index(l, b, g, d)]
}

// IsValid reports whether the oracle produced a sample at this point.
func (t *Table) IsValid(l, b, g, d int) bool {
	return t.Valid[t.Index(l, b, g, d)]
}

// CountInvalid returns the number of grid points marked invalid.
func (t *Table) CountInvalid() int {
	n := 0
	for _, ok := range t.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Plane is the (length × Vgs) slice of a table at one nearest-neighbor
// (Vbs, Vds) bias and a restricted Vgs window. This is the shape the
// derived-quantity evaluator and the sizing engine work on.
type Plane struct {
	Model  string
	Width  float64
	Vbs    float64 // grid value actually used
	Vds    float64
	Length []float64
	Vgs    []float64

	Data  map[string][]float64 // flat, rows = length, cols = vgs
	Valid []bool
}

// Rows is the number of channel lengths in the plane.
func (p *Plane) Rows() int { return len(p.Length) }

// Cols is the number of Vgs samples in the plane.
func (p *Plane) Cols() int { return len(p.Vgs) }

// At reads one raw sample of the plane.
func (p *Plane) At(q string, l, g int) float64 {
	return p.Data[q][l*len(p.Vgs)+g]
}

// ValidRow returns the validity mask of one length row. The slice aliases
// the plane storage; callers must not modify it.
func (p *Plane) ValidRow(l int) []bool {
	cols := len(p.Vgs)
	return p.Valid[l*cols : (l+1)*cols]
}

// ExtractPlane slices the table at the grid points nearest to the requested
// Vbs/Vds bias, keeping only Vgs samples inside [vgsA, vgsB] (order
// insensitive, so PMOS windows may be given either way around).
func (t *Table) ExtractPlane(vbs, vds, vgsA, vgsB float64) (*Plane, error) {
	bIdx := t.Vbs.Nearest(vbs)
	dIdx := t.Vds.Nearest(vds)

	gLo, gHi, ok := t.Vgs.Window(vgsA, vgsB)
	if !ok {
		return nil, fmt.Errorf("table %s: no vgs samples inside [%g, %g]", t.Model, vgsA, vgsB)
	}

	nl := t.Length.Len()
	cols := gHi - gLo + 1
	p := &Plane{
		Model:  t.Model,
		Width:  t.Width,
		Vbs:    t.Vbs.Values[bIdx],
		Vds:    t.Vds.Values[dIdx],
		Length: t.Length.Values,
		Vgs:    t.Vgs.Values[gLo : gHi+1],
		Data:   make(map[string][]float64, len(Quantities)),
		Valid:  make([]bool, nl*cols),
	}

	for _, q := range Quantities {
		arr := make([]float64, nl*cols)
		for l := 0; l < nl; l++ {
			for g := 0; g < cols; g++ {
				arr[l*cols+g] = t.At(q, l, bIdx, gLo+g, dIdx)
			}
		}
		p.Data[q] = arr
	}
	for l := 0; l < nl; l++ {
		for g := 0; g < cols; g++ {
			p.Valid[l*cols+g] = t.IsValid(l, bIdx, gLo+g, dIdx)
		}
	}
	return p, nil
}
