package simulator

import (
	"context"
	"fmt"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/device"
)

// Sample carries the raw quantities a simulation returns for one bias point.
type Sample struct {
	ID    float64 // Drain current (A)
	Gm    float64 // Transconductance (S)
	Gds   float64 // Output conductance (S)
	Vth   float64 // Threshold voltage (V)
	Vdsat float64 // Saturation voltage (V)
	Cgg   float64 // Total gate capacitance (F)
	Cgs   float64 // Gate-Source capacitance (F)
	Cgd   float64 // Gate-Drain capacitance (F)
}

// Oracle evaluates a transistor at one (geometry, bias) point. An
// implementation may fail per point with a *ConvergenceError; the table
// builder treats that as a marked-invalid sample, not a build failure.
type Oracle interface {
	Evaluate(ctx context.Context, b device.Bias) (Sample, error)
}

// ConvergenceError reports that the solver did not settle for one point.
type ConvergenceError struct {
	Bias       device.Bias
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("no convergence in %d iterations at L=%g vgs=%g vds=%g vbs=%g",
		e.Iterations, e.Bias.L, e.Bias.Vgs, e.Bias.Vds, e.Bias.Vbs)
}

// Analytic evaluates the model equations directly at the applied terminal
// voltages, ignoring series resistance. It never fails and backs tests and
// quick table builds.
type Analytic struct {
	Model *device.Mosfet
}

func (a *Analytic) Evaluate(ctx context.Context, b device.Bias) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	op := a.Model.Evaluate(b)
	return Sample{
		ID:    op.ID,
		Gm:    op.Gm,
		Gds:   op.Gds,
		Vth:   op.Vth,
		Vdsat: op.Vdsat,
		Cgg:   op.Cgg,
		Cgs:   op.Cgs,
		Cgd:   op.Cgd,
	}, nil
}
