package netlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/design"
)

func sampleResult() (*design.Result, design.Spec) {
	res := &design.Result{
		Model: "sg13_lv_nmos",
		Op: design.OperatingPoint{
			Length: 390e-9,
			Vgs:    0.58,
			GmID:   10.2,
		},
		GmRequired:     62.83e-6,
		IDRequired:     6.283e-6,
		WidthRequired:  12.5e-6,
		ExpectedGain:   42.5,
		ExpectedGainDB: 32.6,
	}
	spec := design.Spec{Vds: 0.6, Supply: 1.2}
	return res, spec
}

func TestEmitDeckStructure(t *testing.T) {
	res, spec := sampleResult()
	deck := Emit(res, spec, Options{PDKRoot: "/pdk"})

	for _, want := range []string{
		".param W_DESIGN = 1.250000e-05",
		".param L_DESIGN = 3.900000e-07",
		".param VGS_OP = 0.5800",
		".param VDS_OP = 0.60",
		".lib '/pdk/ihp-sg13g2/libs.tech/ngspice/models/cornerMOSlv.lib' mos_tt",
		"X1 drain gate 0 0 sg13_lv_nmos L={L_DESIGN} W={W_DESIGN} ng=1 m=1",
		"print @n.x1.nsg13_lv_nmos[gm]",
		".op",
		".endc",
	} {
		if !strings.Contains(deck, want) {
			t.Errorf("deck missing %q", want)
		}
	}
	if !strings.HasSuffix(deck, ".end\n") {
		t.Error("deck must end with .end")
	}
}

func TestEmitCornerOverride(t *testing.T) {
	res, spec := sampleResult()
	deck := Emit(res, spec, Options{PDKRoot: "/pdk", Corner: "mos_ff"})
	if !strings.Contains(deck, "' mos_ff") {
		t.Error("corner override not honored")
	}
}

func TestEmitPMOSKeepsSignedBias(t *testing.T) {
	res, spec := sampleResult()
	res.Model = "sg13_lv_pmos"
	res.Op.Vgs = -0.58
	spec.Vds = -0.6

	deck := Emit(res, spec, Options{PDKRoot: "/pdk"})
	if !strings.Contains(deck, ".param VGS_OP = -0.5800") {
		t.Error("negative vgs lost")
	}
	if !strings.Contains(deck, ".param VDS_OP = -0.60") {
		t.Error("negative vds lost")
	}
}

func TestWriteDeck(t *testing.T) {
	res, spec := sampleResult()
	path := filepath.Join(t.TempDir(), "verify.spice")

	if err := Write(path, res, spec, Options{PDKRoot: "/pdk"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != Emit(res, spec, Options{PDKRoot: "/pdk"}) {
		t.Error("file content differs from emitted deck")
	}
}
