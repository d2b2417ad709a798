package sweep

import (
	"fmt"
	"math"
)

// Polarity of the device under characterization.
type Polarity int

const (
	NMOS Polarity = iota
	PMOS
)

func (p Polarity) String() string {
	if p == PMOS {
		return "pmos"
	}
	return "nmos"
}

// ConfigError reports a malformed axis or sweep configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sweep config %s: %s", e.Field, e.Reason)
}

// Axis is an ordered sequence of sample points for one independent
// variable. Strictly monotonic and non-empty once constructed.
type Axis struct {
	Values []float64
}

// FromValues builds an axis from an explicit point list.
func FromValues(name string, values []float64) (Axis, error) {
	if len(values) == 0 {
		return Axis{}, &ConfigError{Field: name, Reason: "empty value list"}
	}
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			return Axis{}, &ConfigError{Field: name, Reason: fmt.Sprintf("duplicate point %g", values[i])}
		}
		if (values[i] > values[i-1]) != (values[1] > values[0]) {
			return Axis{}, &ConfigError{Field: name, Reason: "points not strictly monotonic"}
		}
	}
	out := make([]float64, len(values))
	copy(out, values)
	return Axis{Values: out}, nil
}

// FromRange builds an axis over the closed interval [start, stop] with the
// given step. The stop point is included only when it lands on the step
// grid within a relative tolerance of the step. (0, 1.5, 0.01) yields 151
// points; (0, 1, 0.3) yields {0, 0.3, 0.6, 0.9}.
func FromRange(name string, start, stop, step float64) (Axis, error) {
	if step == 0 {
		return Axis{}, &ConfigError{Field: name, Reason: "zero step"}
	}
	span := stop - start
	if span == 0 {
		return Axis{Values: []float64{start}}, nil
	}
	if math.Signbit(span) != math.Signbit(step) {
		return Axis{}, &ConfigError{Field: name,
			Reason: fmt.Sprintf("step %g cannot reach %g from %g", step, stop, start)}
	}

	const tol = 1e-9
	n := int(span/step + tol*math.Abs(span/step) + tol)
	values := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		values = append(values, start+float64(i)*step)
	}
	if len(values) == 0 {
		return Axis{}, &ConfigError{Field: name, Reason: "empty sweep"}
	}
	return Axis{Values: values}, nil
}

// Len is the number of sample points.
func (a Axis) Len() int { return len(a.Values) }

// Nearest returns the index whose value is closest to x. Ties keep the
// first occurrence.
func (a Axis) Nearest(x float64) int {
	best := 0
	bestDist := math.Abs(a.Values[0] - x)
	for i := 1; i < len(a.Values); i++ {
		if d := math.Abs(a.Values[i] - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Window returns the index range [lo, hi] covering values inside [x, y]
// (order-insensitive). Bounds carry a small relative tolerance so grid
// points built by repeated step addition still match their nominal value.
// Returns ok=false when no point falls inside.
func (a Axis) Window(x, y float64) (lo, hi int, ok bool) {
	if x > y {
		x, y = y, x
	}
	tol := 1e-9 * math.Max(math.Abs(x), math.Abs(y))
	lo, hi = -1, -1
	for i, v := range a.Values {
		if v >= x-tol && v <= y+tol {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	return lo, hi, lo >= 0
}

// Transistor groups the four sweep axes plus the device polarity.
// Immutable once constructed. PMOS sweeps carry physically signed
// (negative) voltage axes; no downstream absolute-value conversion.
type Transistor struct {
	Polarity Polarity
	Length   Axis
	Vgs      Axis
	Vds      Axis
	Vbs      Axis
}

// NewTransistor validates the combined sweep. Channel lengths must be
// positive; every voltage axis must keep one sign convention consistent
// with the polarity (NMOS Vgs/Vds non-negative, PMOS non-positive, Vbs
// reversed for the body reverse bias).
func NewTransistor(polarity Polarity, length, vgs, vds, vbs Axis) (*Transistor, error) {
	for _, l := range length.Values {
		if l <= 0 {
			return nil, &ConfigError{Field: "length", Reason: fmt.Sprintf("non-positive length %g", l)}
		}
	}
	if err := checkSign("vgs", vgs, polarity == PMOS); err != nil {
		return nil, err
	}
	if err := checkSign("vds", vds, polarity == PMOS); err != nil {
		return nil, err
	}
	// Body bias runs opposite to the gate/drain sign.
	if err := checkSign("vbs", vbs, polarity != PMOS); err != nil {
		return nil, err
	}
	return &Transistor{Polarity: polarity, Length: length, Vgs: vgs, Vds: vds, Vbs: vbs}, nil
}

func checkSign(name string, a Axis, negative bool) error {
	for _, v := range a.Values {
		if negative && v > 0 {
			return &ConfigError{Field: name, Reason: fmt.Sprintf("positive value %g in non-positive axis", v)}
		}
		if !negative && v < 0 {
			return &ConfigError{Field: name, Reason: fmt.Sprintf("negative value %g in non-negative axis", v)}
		}
	}
	return nil
}
