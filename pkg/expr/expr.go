package expr

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
)

// Quantity is one of the closed set of derived figures of merit. The set is
// small and fixed; there is deliberately no open-ended expression mechanism.
type Quantity int

const (
	GmOverID Quantity = iota
	TransitFrequency
	IntrinsicGain
	CurrentDensity
	TransconductanceDensity
)

var quantityInfo = map[Quantity]struct {
	name  string
	label string
	unit  string
}{
	GmOverID:                {"gmid", "gm/ID", "S/A"},
	TransitFrequency:        {"ft", "fT", "Hz"},
	IntrinsicGain:           {"gain", "gm/gds", "V/V"},
	CurrentDensity:          {"id_w", "ID/W", "A/m"},
	TransconductanceDensity: {"gm_w", "gm/W", "S/m"},
}

func (q Quantity) String() string { return quantityInfo[q].name }

// Label is the human-readable chart label.
func (q Quantity) Label() string { return quantityInfo[q].label }

// Unit is the physical unit of the quantity.
func (q Quantity) Unit() string { return quantityInfo[q].unit }

// ErrNoAdmissible reports a reduction that found no usable sample. Distinct
// from a zero value: it means every candidate was invalid or non-positive.
var ErrNoAdmissible = errors.New("no admissible samples")

// Admissible reports whether a derived sample may enter reductions, logs or
// ratios: finite and strictly positive. Zero or negative densities, gains
// and frequencies are physically meaningless here.
func Admissible(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Evaluate computes a derived quantity elementwise over a plane. The result
// is flat (Rows×Cols), aligned with the plane layout. Division by zero or
// by an invalid (NaN) raw sample propagates a non-finite sentinel; callers
// filter with Admissible before reducing. Evaluation is deterministic:
// identical inputs produce bit-identical output.
//
// Density quantities divide by the reference width the table was built at;
// ratio quantities use |ID| so PMOS tables, whose drain current is
// negative by sign convention, yield positive figures of merit.
func Evaluate(q Quantity, p *table.Plane) ([]float64, error) {
	n := p.Rows() * p.Cols()
	dst := make([]float64, n)

	switch q {
	case GmOverID:
		floats.DivTo(dst, p.Data[table.QGm], absOf(p.Data[table.QID]))
	case TransitFrequency:
		floats.DivTo(dst, p.Data[table.QGm], p.Data[table.QCgg])
		floats.Scale(1.0/(2.0*math.Pi), dst)
	case IntrinsicGain:
		floats.DivTo(dst, p.Data[table.QGm], p.Data[table.QGds])
	case CurrentDensity:
		if p.Width == 0 {
			return nil, fmt.Errorf("evaluate %s: plane has zero reference width", q)
		}
		floats.ScaleTo(dst, 1.0/p.Width, absOf(p.Data[table.QID]))
	case TransconductanceDensity:
		if p.Width == 0 {
			return nil, fmt.Errorf("evaluate %s: plane has zero reference width", q)
		}
		floats.ScaleTo(dst, 1.0/p.Width, p.Data[table.QGm])
	default:
		return nil, fmt.Errorf("unknown derived quantity %d", int(q))
	}
	return dst, nil
}

func absOf(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = math.Abs(v)
	}
	return out
}

// MaxValid returns the maximum admissible sample and its index, honoring an
// optional validity mask. ErrNoAdmissible when nothing qualifies.
func MaxValid(values []float64, valid []bool) (float64, int, error) {
	best := math.Inf(-1)
	bestIdx := -1
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		if !Admissible(v) {
			continue
		}
		if v > best {
			best, bestIdx = v, i
		}
	}
	if bestIdx < 0 {
		return 0, -1, ErrNoAdmissible
	}
	return best, bestIdx, nil
}

// NearestValid returns the index of the admissible sample closest to
// target (argmin of absolute difference). Ties keep the first occurrence.
func NearestValid(values []float64, valid []bool, target float64) (int, error) {
	bestDist := math.Inf(1)
	bestIdx := -1
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		if !Admissible(v) {
			continue
		}
		if d := math.Abs(v - target); d < bestDist {
			bestDist, bestIdx = d, i
		}
	}
	if bestIdx < 0 {
		return -1, ErrNoAdmissible
	}
	return bestIdx, nil
}
