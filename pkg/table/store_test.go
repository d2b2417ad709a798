package table

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/device"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

func TestStoreRoundTrip(t *testing.T) {
	sw := testSweep(t)
	failVgs := sw.Vgs.Values[2]
	oracle := &fakeOracle{failAt: func(b device.Bias) bool { return b.Vgs == failVgs }}

	built, err := (&Builder{Oracle: oracle, Workers: 4}).Build(context.Background(), "sg13_lv_nmos", sw)
	if err != nil {
		t.Fatal(err)
	}
	built.Description = "unit test table"

	path := filepath.Join(t.TempDir(), "tables.db")
	if err := Save(path, built); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path, "sg13_lv_nmos")
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Description != built.Description || loaded.Width != built.Width {
		t.Errorf("metadata mismatch: %q/%g vs %q/%g",
			loaded.Description, loaded.Width, built.Description, built.Width)
	}
	if loaded.Polarity != sweep.NMOS {
		t.Errorf("polarity = %v, want nmos", loaded.Polarity)
	}

	l1, b1, g1, d1 := built.Shape()
	l2, b2, g2, d2 := loaded.Shape()
	if l1 != l2 || b1 != b2 || g1 != g2 || d1 != d2 {
		t.Fatalf("shape changed on reload: (%d,%d,%d,%d) vs (%d,%d,%d,%d)",
			l1, b1, g1, d1, l2, b2, g2, d2)
	}

	for _, q := range Quantities {
		for i := range built.Data[q] {
			a, b := built.Data[q][i], loaded.Data[q][i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Fatalf("quantity %s offset %d: %g reloaded as %g", q, i, a, b)
			}
		}
	}
	for i := range built.Valid {
		if built.Valid[i] != loaded.Valid[i] {
			t.Fatalf("validity mask changed at offset %d", i)
		}
	}
}

func TestStoreMultipleModels(t *testing.T) {
	sw := testSweep(t)
	nmos, err := (&Builder{Oracle: &fakeOracle{}}).Build(context.Background(), "nmos_lv", sw)
	if err != nil {
		t.Fatal(err)
	}
	pmos, err := (&Builder{Oracle: &fakeOracle{}}).Build(context.Background(), "pmos_lv", sw)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "tables.db")
	if err := Save(path, nmos, pmos); err != nil {
		t.Fatal(err)
	}

	names, err := Models(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("stored models = %v, want 2 entries", names)
	}

	if _, err := Load(path, "missing"); err == nil {
		t.Error("loading an absent model must fail")
	}
}
