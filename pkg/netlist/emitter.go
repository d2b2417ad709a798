// Package netlist emits ngspice decks that verify a sized design at its
// operating point against the characterization tables.
package netlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/design"
)

const (
	// DefaultCorner is the typical-typical model corner of the PDK library.
	DefaultCorner = "mos_tt"

	mosLibPath = "ihp-sg13g2/libs.tech/ngspice/models/cornerMOSlv.lib"
)

// Options locate the PDK model library. PDKRoot falls back to the PDK_ROOT
// environment variable, then to a placeholder the user must edit.
type Options struct {
	PDKRoot string
	Corner  string
}

func (o Options) pdkRoot() string {
	if o.PDKRoot != "" {
		return o.PDKRoot
	}
	if env := os.Getenv("PDK_ROOT"); env != "" {
		return env
	}
	return "/path/to/IHP-Open-PDK"
}

func (o Options) corner() string {
	if o.Corner != "" {
		return o.Corner
	}
	return DefaultCorner
}

// Emit renders an operating point verification deck for a sized design.
// The deck biases a single device of the synthesized geometry, runs .op,
// and prints the device internals next to the table-predicted values so
// the two can be compared by eye. Bias values carry the table's sign
// convention, so PMOS decks come out with negative sources.
func Emit(res *design.Result, spec design.Spec, opt Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "* %s operating point verification\n", res.Model)
	fmt.Fprintf(&b, "* gm/ID sizing result\n")
	fmt.Fprintf(&b, "*   L = %.3f um\n", res.Op.Length*1e6)
	fmt.Fprintf(&b, "*   W = %.3f um\n", res.WidthRequired*1e6)
	fmt.Fprintf(&b, "*   VGS = %.4f V\n", res.Op.Vgs)
	fmt.Fprintf(&b, "*   expected ID = %.3f uA\n", res.IDRequired*1e6)
	fmt.Fprintf(&b, "*   expected gm = %.3f uS\n\n", res.GmRequired*1e6)

	fmt.Fprintf(&b, ".param W_DESIGN = %.6e\n", res.WidthRequired)
	fmt.Fprintf(&b, ".param L_DESIGN = %.6e\n", res.Op.Length)
	fmt.Fprintf(&b, ".param VGS_OP = %.4f\n", res.Op.Vgs)
	fmt.Fprintf(&b, ".param VDS_OP = %.2f\n\n", spec.Vds)

	fmt.Fprintf(&b, ".lib '%s' %s\n\n", filepath.Join(opt.pdkRoot(), mosLibPath), opt.corner())

	fmt.Fprintf(&b, "VGS gate 0 DC={VGS_OP}\n")
	fmt.Fprintf(&b, "VDS drain 0 DC={VDS_OP}\n\n")

	// Terminal order: drain gate source bulk.
	fmt.Fprintf(&b, "X1 drain gate 0 0 %s L={L_DESIGN} W={W_DESIGN} ng=1 m=1\n\n", res.Model)

	fmt.Fprintf(&b, ".op\n\n")
	fmt.Fprintf(&b, ".control\nop\n")
	fmt.Fprintf(&b, "echo \"======================================\"\n")
	fmt.Fprintf(&b, "echo \"Operating Point Results\"\n")
	fmt.Fprintf(&b, "echo \"======================================\"\n")
	for _, q := range []string{"id", "gm", "gds", "vth", "vdsat"} {
		fmt.Fprintf(&b, "print @n.x1.n%s[%s]\n", res.Model, q)
	}
	fmt.Fprintf(&b, "echo \"\"\n")
	fmt.Fprintf(&b, "echo \"Expected from characterization tables:\"\n")
	fmt.Fprintf(&b, "echo \"  ID = %.4f uA\"\n", res.IDRequired*1e6)
	fmt.Fprintf(&b, "echo \"  gm = %.4f uS\"\n", res.GmRequired*1e6)
	fmt.Fprintf(&b, "echo \"  gm/ID = %.2f S/A\"\n", res.Op.GmID)
	fmt.Fprintf(&b, "echo \"  Av (gm/gds) = %.2f V/V (%.1f dB)\"\n",
		res.ExpectedGain, res.ExpectedGainDB)
	fmt.Fprintf(&b, "echo \"======================================\"\n")
	fmt.Fprintf(&b, ".endc\n\n.end\n")

	return b.String()
}

// Write emits the deck to a file.
func Write(path string, res *design.Result, spec design.Spec, opt Options) error {
	if err := os.WriteFile(path, []byte(Emit(res, spec, opt)), 0o644); err != nil {
		return fmt.Errorf("write netlist %s: %w", path, err)
	}
	return nil
}
