package design

import (
	"fmt"
	"math"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/expr"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
)

// DefaultReferenceGmID is the gm/ID at which candidate lengths are ranked
// during length selection. An engineering convention, not a derived value,
// so it stays overridable per request.
const DefaultReferenceGmID = 10.0

// Spec is one design request: the target operating region plus the
// gain/bandwidth constraints the sized device must meet.
type Spec struct {
	TargetGmID   float64 // S/A
	GainMin      float64 // minimum intrinsic gain (V/V)
	BandwidthMin float64 // Hz
	LoadCap      float64 // F
	Supply       float64 // V, carried through to reporting
	Vds          float64 // fixed drain bias (V)
	Vbs          float64 // fixed body bias (V)
	VgsLo        float64 // gate sweep window (V)
	VgsHi        float64
	RefGmID      float64 // length-ranking reference; DefaultReferenceGmID when zero
}

func (s Spec) refGmID() float64 {
	if s.RefGmID == 0 {
		return DefaultReferenceGmID
	}
	return s.RefGmID
}

// OperatingPoint is the selected (length, bias) grid coordinate with the
// raw and derived values sampled there.
type OperatingPoint struct {
	LengthIndex int
	BiasIndex   int
	Length      float64 // m
	Vgs         float64 // V

	GmID           float64 // S/A
	Gain           float64 // V/V
	FT             float64 // Hz
	CurrentDensity float64 // A/m
	GmDensity      float64 // S/m

	ID  float64 // A, raw at reference width
	Gm  float64 // S
	Gds float64 // S
	Vth float64 // V
	Cgg float64 // F
}

// Result is the sized design. GainMet distinguishes a requirement-met
// outcome from the best-available fallback when no length reaches the
// gain floor.
type Result struct {
	Model string
	Op    OperatingPoint

	GmRequired     float64 // S
	IDRequired     float64 // A
	WidthRequired  float64 // m
	ExpectedGain   float64 // V/V
	ExpectedGainDB float64
	FTMargin       float64 // fT / BW

	GainMet       bool
	Justification string
}

// InvalidOperatingPointError: the selected point has a zero or non-finite
// gm/ID or current density, so dimension synthesis is undefined.
type InvalidOperatingPointError struct {
	Length float64
	Vgs    float64
	Reason string
}

func (e *InvalidOperatingPointError) Error() string {
	return fmt.Sprintf("invalid operating point at L=%g vgs=%g: %s", e.Length, e.Vgs, e.Reason)
}

// Engine searches one characterization table for an operating point and
// sizes the device. Read-only over the table; single-threaded per request.
type Engine struct {
	Table *table.Table
}

func NewEngine(t *table.Table) *Engine {
	return &Engine{Table: t}
}

// lengthAnalysis carries the per-length gain statistics of step 1.
type lengthAnalysis struct {
	maxGain []float64 // max admissible gain over the vgs window, 0 when none
	refGain []float64 // gain at the bias nearest the reference gm/ID, 0 when none
}

// Run executes the three-step flow: length selection, bias selection,
// dimension synthesis.
func (e *Engine) Run(spec Spec) (*Result, error) {
	if spec.BandwidthMin <= 0 || spec.LoadCap <= 0 {
		return nil, fmt.Errorf("design request: bandwidth %g and load cap %g must be positive",
			spec.BandwidthMin, spec.LoadCap)
	}
	if spec.TargetGmID <= 0 {
		return nil, fmt.Errorf("design request: target gm/ID %g must be positive", spec.TargetGmID)
	}

	p, err := e.Table.ExtractPlane(spec.Vbs, spec.Vds, spec.VgsLo, spec.VgsHi)
	if err != nil {
		return nil, err
	}

	gmid, err := expr.Evaluate(expr.GmOverID, p)
	if err != nil {
		return nil, err
	}
	gain, err := expr.Evaluate(expr.IntrinsicGain, p)
	if err != nil {
		return nil, err
	}
	idw, err := expr.Evaluate(expr.CurrentDensity, p)
	if err != nil {
		return nil, err
	}
	gmw, err := expr.Evaluate(expr.TransconductanceDensity, p)
	if err != nil {
		return nil, err
	}
	ft, err := expr.Evaluate(expr.TransitFrequency, p)
	if err != nil {
		return nil, err
	}

	analysis := e.analyzeGainVsLength(p, gmid, gain, spec.refGmID())

	lIdx, met, justification, err := e.selectLength(p, analysis, spec.GainMin)
	if err != nil {
		return nil, err
	}

	gIdx, err := e.selectBias(p, gmid, lIdx, spec.TargetGmID)
	if err != nil {
		return nil, err
	}

	cols := p.Cols()
	at := lIdx*cols + gIdx
	op := OperatingPoint{
		LengthIndex:    lIdx,
		BiasIndex:      gIdx,
		Length:         p.Length[lIdx],
		Vgs:            p.Vgs[gIdx],
		GmID:           gmid[at],
		Gain:           gain[at],
		FT:             ft[at],
		CurrentDensity: idw[at],
		GmDensity:      gmw[at],
		ID:             p.At(table.QID, lIdx, gIdx),
		Gm:             p.At(table.QGm, lIdx, gIdx),
		Gds:            p.At(table.QGds, lIdx, gIdx),
		Vth:            p.At(table.QVth, lIdx, gIdx),
		Cgg:            p.At(table.QCgg, lIdx, gIdx),
	}

	result, err := synthesize(spec, op)
	if err != nil {
		return nil, err
	}
	result.Model = p.Model
	result.GainMet = met
	result.Justification = justification
	return result, nil
}

// analyzeGainVsLength computes, per length, the maximum admissible gain
// and the gain at the bias whose gm/ID is nearest the reference value.
// Lengths with no admissible samples get zeros, which can never meet a
// positive gain floor.
func (e *Engine) analyzeGainVsLength(p *table.Plane, gmid, gain []float64, refGmID float64) lengthAnalysis {
	rows, cols := p.Rows(), p.Cols()
	a := lengthAnalysis{
		maxGain: make([]float64, rows),
		refGain: make([]float64, rows),
	}

	for l := 0; l < rows; l++ {
		gmidRow := gmid[l*cols : (l+1)*cols]
		gainRow := gain[l*cols : (l+1)*cols]
		mask := rowMask(p.ValidRow(l), gmidRow, gainRow)

		if best, _, err := expr.MaxValid(gainRow, mask); err == nil {
			a.maxGain[l] = best
		}
		if idx, err := expr.NearestValid(gmidRow, mask, refGmID); err == nil {
			a.refGain[l] = gainRow[idx]
		}
	}
	return a
}

// rowMask is true where the sample is simulated and both the gm/ID and
// gain values are admissible.
func rowMask(valid []bool, gmidRow, gainRow []float64) []bool {
	mask := make([]bool, len(valid))
	for i := range mask {
		mask[i] = valid[i] && expr.Admissible(gmidRow[i]) && expr.Admissible(gainRow[i])
	}
	return mask
}

// selectLength picks the smallest length whose reference-point gain meets
// the floor; smaller lengths buy transit frequency at equal gm/ID. When no
// length qualifies the globally best length is returned as a flagged
// best-effort outcome, never an error.
func (e *Engine) selectLength(p *table.Plane, a lengthAnalysis, gainMin float64) (int, bool, string, error) {
	bestIdx := -1
	for l := 0; l < p.Rows(); l++ {
		if a.refGain[l] < gainMin {
			continue
		}
		if bestIdx < 0 || p.Length[l] < p.Length[bestIdx] {
			bestIdx = l
		}
	}
	if bestIdx >= 0 {
		just := fmt.Sprintf("L=%.3gum gives gain %.1f at reference gm/ID, meeting Av>=%.1f",
			p.Length[bestIdx]*1e6, a.refGain[bestIdx], gainMin)
		return bestIdx, true, just, nil
	}

	// Fallback: best available gain anywhere in the window.
	fallback := -1
	for l := 0; l < p.Rows(); l++ {
		if fallback < 0 || a.maxGain[l] > a.maxGain[fallback] {
			fallback = l
		}
	}
	if fallback < 0 || a.maxGain[fallback] <= 0 {
		return 0, false, "", fmt.Errorf("gain over vgs window: %w", expr.ErrNoAdmissible)
	}
	just := fmt.Sprintf("no length meets Av>=%.1f at reference gm/ID; using L=%.3gum (max gain %.1f)",
		gainMin, p.Length[fallback]*1e6, a.maxGain[fallback])
	return fallback, false, just, nil
}

// selectBias finds the vgs index whose gm/ID is nearest the target, over
// admissible samples at the chosen length only.
func (e *Engine) selectBias(p *table.Plane, gmid []float64, lIdx int, target float64) (int, error) {
	cols := p.Cols()
	row := gmid[lIdx*cols : (lIdx+1)*cols]
	idx, err := expr.NearestValid(row, p.ValidRow(lIdx), target)
	if err != nil {
		return -1, fmt.Errorf("gm/ID at L=%g: %w", p.Length[lIdx], err)
	}
	return idx, nil
}

// synthesize derives geometry and bias current from the operating point:
// gm from the single-pole bandwidth relation, drain current from gm/ID,
// width by rescaling the fixed-width characterization through the current
// density. Width scaling assumes density quantities are width-invariant,
// which holds for unit-width scaling at fixed length and bias but not
// across lengths.
func synthesize(spec Spec, op OperatingPoint) (*Result, error) {
	if !expr.Admissible(op.GmID) {
		return nil, &InvalidOperatingPointError{Length: op.Length, Vgs: op.Vgs,
			Reason: fmt.Sprintf("gm/ID = %g", op.GmID)}
	}
	if !expr.Admissible(op.CurrentDensity) {
		return nil, &InvalidOperatingPointError{Length: op.Length, Vgs: op.Vgs,
			Reason: fmt.Sprintf("current density = %g", op.CurrentDensity)}
	}

	gmRequired := 2 * math.Pi * spec.BandwidthMin * spec.LoadCap
	idRequired := gmRequired / op.GmID
	width := idRequired / op.CurrentDensity

	gainDB := 0.0
	if op.Gain > 0 {
		gainDB = 20 * math.Log10(op.Gain)
	}

	return &Result{
		Op:             op,
		GmRequired:     gmRequired,
		IDRequired:     idRequired,
		WidthRequired:  width,
		ExpectedGain:   op.Gain,
		ExpectedGainDB: gainDB,
		// A margin near 1x means the single-pole bandwidth model is
		// running out of device speed.
		FTMargin: op.FT / spec.BandwidthMin,
	}, nil
}
