package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

func TestDefaultGrid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}

	sc, err := cfg.Sweep("sg13_lv_nmos")
	if err != nil {
		t.Fatal(err)
	}
	sw, err := sc.Transistor()
	if err != nil {
		t.Fatal(err)
	}

	if n := sw.Length.Len(); n != 76 {
		t.Errorf("%d lengths, want 76", n)
	}
	if sw.Length.Values[0] != 130e-9 {
		t.Errorf("first length = %g, want 130nm", sw.Length.Values[0])
	}
	if n := sw.Vgs.Len(); n != 151 {
		t.Errorf("%d vgs points, want 151", n)
	}
	if n := sw.Vds.Len(); n != 31 {
		t.Errorf("%d vds points, want 31", n)
	}
	if n := sw.Vbs.Len(); n != 13 {
		t.Errorf("%d vbs points, want 13", n)
	}
}

func TestDefaultPMOSSweep(t *testing.T) {
	sc, err := Default().Sweep("sg13_lv_pmos")
	if err != nil {
		t.Fatal(err)
	}
	sw, err := sc.Transistor()
	if err != nil {
		t.Fatal(err)
	}
	if sw.Polarity != sweep.PMOS {
		t.Error("pmos sweep lost its polarity")
	}
	if sw.Vgs.Values[sw.Vgs.Len()-1] != -1.5 {
		t.Errorf("pmos vgs endpoint = %g, want -1.5", sw.Vgs.Values[sw.Vgs.Len()-1])
	}
}

func TestLoadRoundTrip(t *testing.T) {
	src := `
table_path: out/tables.db
workers: 8
sweeps:
  - model: sg13_lv_nmos
    polarity: nmos
    length_range: {start: 130.0e-9, stop: 650.0e-9, step: 130.0e-9}
    vgs: {start: 0, stop: 1.2, step: 0.1}
    vds: {start: 0, stop: 1.2, step: 0.3}
    vbs: {start: 0, stop: -0.8, step: -0.4}
design:
  model: sg13_lv_nmos
  target_gmid: 12
  gain_min: 20
  bandwidth_min: 50.0e+6
  load_cap: 250.0e-15
  supply: 1.2
  vds: 0.6
  vgs_lo: 0.2
  vgs_hi: 1.0
`
	path := filepath.Join(t.TempDir(), "gmid.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TablePath != "out/tables.db" || cfg.Workers != 8 {
		t.Errorf("top level fields: %q workers %d", cfg.TablePath, cfg.Workers)
	}

	sc, err := cfg.Sweep("sg13_lv_nmos")
	if err != nil {
		t.Fatal(err)
	}
	sw, err := sc.Transistor()
	if err != nil {
		t.Fatal(err)
	}
	if n := sw.Length.Len(); n != 5 {
		t.Errorf("%d lengths from range, want 5", n)
	}

	spec := cfg.Design.Spec()
	if spec.TargetGmID != 12 || spec.LoadCap != 250e-15 {
		t.Errorf("design spec not carried through: %+v", spec)
	}
	if spec.RefGmID != 0 {
		t.Errorf("omitted reference gm/ID = %g, want zero (engine default)", spec.RefGmID)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"bad polarity": `
sweeps:
  - model: m
    polarity: sideways
    lengths: [130.0e-9]
    vgs: {start: 0, stop: 1, step: 0.5}
    vds: {start: 0, stop: 1, step: 0.5}
    vbs: {start: 0, stop: -1, step: -0.5}
`,
		"no lengths": `
sweeps:
  - model: m
    polarity: nmos
    vgs: {start: 0, stop: 1, step: 0.5}
    vds: {start: 0, stop: 1, step: 0.5}
    vbs: {start: 0, stop: -1, step: -0.5}
`,
		"missing model": `
sweeps:
  - polarity: nmos
    lengths: [130.0e-9]
`,
	}
	for name, src := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestSweepLookupMiss(t *testing.T) {
	if _, err := Default().Sweep("sg13_hv_nmos"); err == nil {
		t.Error("unknown model lookup must fail")
	}
}
