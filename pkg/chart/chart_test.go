package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/expr"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
)

func testPlane() *table.Plane {
	p := &table.Plane{
		Model:  "sg13_lv_nmos",
		Width:  10e-6,
		Vbs:    0,
		Vds:    0.6,
		Length: []float64{130e-9, 260e-9},
		Vgs:    []float64{0.4, 0.5, 0.6, 0.7},
		Data:   make(map[string][]float64),
		Valid:  make([]bool, 8),
	}
	for _, q := range table.Quantities {
		p.Data[q] = make([]float64, 8)
	}
	gmids := []float64{18, 14, 10, 7}
	for l := 0; l < 2; l++ {
		for g := 0; g < 4; g++ {
			i := l*4 + g
			id := 1e-4
			p.Data[table.QID][i] = id
			p.Data[table.QGm][i] = gmids[g] * id
			p.Data[table.QGds][i] = gmids[g] * id / float64(10*(l+1))
			p.Data[table.QCgg][i] = 1e-14 * float64(l+1)
			p.Valid[i] = true
		}
	}
	return p
}

func TestSeriesFiltersAndSorts(t *testing.T) {
	gmid := []float64{7, math.NaN(), 18, 10, -2}
	vals := []float64{1, 2, 3, 4, 5}
	valid := []bool{true, true, true, false, true}

	// NaN gm/ID, masked-out and negative samples drop; rest sorted by x.
	xys := series(gmid, vals, valid)
	if len(xys) != 2 {
		t.Fatalf("series kept %d points, want 2", len(xys))
	}
	if xys[0].X != 7 || xys[1].X != 18 {
		t.Errorf("series not sorted by gm/ID: %v", xys)
	}
}

func TestRenderWritesFile(t *testing.T) {
	r := NewRenderer(testPlane())
	path := filepath.Join(t.TempDir(), "ft.png")

	if err := r.Render(expr.TransitFrequency, path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty chart file")
	}
}

func TestRenderAllProducesFourCharts(t *testing.T) {
	r := NewRenderer(testPlane())
	dir := t.TempDir()

	paths, err := r.RenderAll(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != len(DesignQuantities) {
		t.Fatalf("%d charts, want %d", len(paths), len(DesignQuantities))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing chart %s: %v", p, err)
		}
	}
}

func TestRenderEmptyPlaneFails(t *testing.T) {
	p := testPlane()
	for i := range p.Valid {
		p.Valid[i] = false
	}

	err := NewRenderer(p).Render(expr.IntrinsicGain, filepath.Join(t.TempDir(), "gain.png"))
	if err == nil {
		t.Fatal("expected failure with no admissible samples")
	}
}
