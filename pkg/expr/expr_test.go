package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
)

// plane builds a 2x3 test plane with explicit raw values.
func plane(id, gm, gds, cgg []float64, valid []bool) *table.Plane {
	p := &table.Plane{
		Model:  "m",
		Width:  10e-6,
		Length: []float64{130e-9, 260e-9},
		Vgs:    []float64{0.5, 0.7, 0.9},
		Data:   make(map[string][]float64),
		Valid:  valid,
	}
	for _, q := range table.Quantities {
		p.Data[q] = make([]float64, 6)
	}
	copy(p.Data[table.QID], id)
	copy(p.Data[table.QGm], gm)
	copy(p.Data[table.QGds], gds)
	copy(p.Data[table.QCgg], cgg)
	if valid == nil {
		p.Valid = []bool{true, true, true, true, true, true}
	}
	return p
}

func TestEvaluateGmOverID(t *testing.T) {
	p := plane(
		[]float64{1e-6, 2e-6, 4e-6, -1e-6, -2e-6, -4e-6}, // second row PMOS-signed
		[]float64{10e-6, 30e-6, 50e-6, 10e-6, 30e-6, 50e-6},
		nil, nil, nil)

	got, err := Evaluate(GmOverID, p)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10, 15, 12.5, 10, 15, 12.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("gm/ID[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestEvaluateTransitFrequency(t *testing.T) {
	p := plane(
		[]float64{1, 1, 1, 1, 1, 1},
		[]float64{6.2832e-5, 0, 0, 0, 0, 0},
		nil,
		[]float64{1e-14, 1e-14, 1e-14, 1e-14, 1e-14, 1e-14},
		nil)

	got, err := Evaluate(TransitFrequency, p)
	if err != nil {
		t.Fatal(err)
	}
	want := 6.2832e-5 / (2 * math.Pi * 1e-14) // ≈ 1 GHz
	if math.Abs(got[0]-want)/want > 1e-9 {
		t.Errorf("fT = %g, want %g", got[0], want)
	}
}

func TestEvaluateDensities(t *testing.T) {
	p := plane(
		[]float64{-5e-4, 0, 0, 0, 0, 0}, // PMOS-signed current
		[]float64{1e-3, 0, 0, 0, 0, 0},
		nil, nil, nil)

	idw, err := Evaluate(CurrentDensity, p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(idw[0]-50) > 1e-9 { // |−0.5mA| / 10µm = 50 A/m
		t.Errorf("ID/W = %g, want 50", idw[0])
	}

	gmw, err := Evaluate(TransconductanceDensity, p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(gmw[0]-100) > 1e-9 {
		t.Errorf("gm/W = %g, want 100", gmw[0])
	}
}

func TestEvaluateSentinelPropagation(t *testing.T) {
	nan := math.NaN()
	p := plane(
		[]float64{0, nan, 1e-6, 1e-6, 1e-6, 1e-6},
		[]float64{1e-5, 1e-5, 1e-5, 1e-5, 1e-5, 1e-5},
		nil, nil, nil)

	got, err := Evaluate(GmOverID, p)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(got[0], 1) {
		t.Errorf("division by zero = %g, want +Inf sentinel", got[0])
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("invalid sample = %g, want NaN sentinel", got[1])
	}
	if Admissible(got[0]) || Admissible(got[1]) {
		t.Error("sentinels must not be admissible")
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	nan := math.NaN()
	p := plane(
		[]float64{1e-6, 0, nan, 2e-6, -3e-6, 4e-6},
		[]float64{1e-5, 1e-5, 1e-5, 1e-5, 1e-5, 1e-5},
		nil, nil, nil)

	a, err := Evaluate(GmOverID, p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Evaluate(GmOverID, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("offset %d: %x != %x, evaluation not bit-identical", i,
				math.Float64bits(a[i]), math.Float64bits(b[i]))
		}
	}
}

func TestMaxValidExcludesInvalid(t *testing.T) {
	values := []float64{3, math.Inf(1), 100, -5, math.NaN(), 7}
	valid := []bool{true, true, false, true, true, true}

	// 100 is masked invalid, Inf and NaN are not finite, -5 not positive.
	best, idx, err := MaxValid(values, valid)
	if err != nil {
		t.Fatal(err)
	}
	if best != 7 || idx != 5 {
		t.Errorf("max = %g at %d, want 7 at 5", best, idx)
	}

	if _, _, err := MaxValid([]float64{math.NaN(), -1, 0}, nil); !errors.Is(err, ErrNoAdmissible) {
		t.Errorf("got %v, want ErrNoAdmissible", err)
	}
}

func TestNearestValidFixture(t *testing.T) {
	// Non-tied fixture pinning the argmin rule: 11 is closer to 10.2 than
	// 9.5, so index 3 wins outright.
	row := []float64{2, 5, 9.5, 11, 15}
	idx, err := NearestValid(row, nil, 10.2)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 3 {
		t.Errorf("nearest to 10.2 = index %d, want 3", idx)
	}

	// Exact tie keeps the first occurrence.
	tied := []float64{9, 11, 11}
	idx, err = NearestValid(tied, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("tie-break returned %d, want first occurrence 0", idx)
	}

	// Invalid samples never win even when numerically closest.
	row = []float64{2, 5, 9, 11, 15}
	valid := []bool{true, true, true, false, true}
	idx, err = NearestValid(row, valid, 10)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Errorf("masked nearest = %d, want 2", idx)
	}
}

func TestQuantityMetadata(t *testing.T) {
	if GmOverID.Unit() != "S/A" || TransitFrequency.Unit() != "Hz" {
		t.Error("unexpected quantity units")
	}
	if IntrinsicGain.String() != "gain" {
		t.Errorf("IntrinsicGain name = %q", IntrinsicGain.String())
	}
}
