package table

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/device"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/simulator"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

// DefaultWidth is the reference width every grid point is simulated at.
// Physical sizing rescales through the density quantities instead of
// re-simulating, under the assumption that Id/W and gm/ID are
// width-invariant for unit-width scaling at fixed length and bias.
const DefaultWidth = 10e-6

// Builder runs the oracle over the full sweep cross product and assembles
// the characterization table. Grid points are independent; they are fanned
// out over a bounded worker pool and each result lands at its multi-index,
// so worker completion order never affects the table layout.
type Builder struct {
	Oracle  simulator.Oracle
	Width   float64 // reference width, DefaultWidth when zero
	Workers int     // pool size, 1 when zero or negative
}

// Build characterizes one model over the sweep. A per-point
// *simulator.ConvergenceError marks that point invalid and the build
// continues; any other oracle error cancels the remaining points and fails
// the build. Cancelling ctx stops between grid points.
func (bld *Builder) Build(ctx context.Context, model string, sw *sweep.Transistor) (*Table, error) {
	if bld.Oracle == nil {
		return nil, fmt.Errorf("build %s: no oracle configured", model)
	}
	width := bld.Width
	if width == 0 {
		width = DefaultWidth
	}
	workers := bld.Workers
	if workers <= 0 {
		workers = 1
	}

	t := newTable(model, width, sw)
	nl, nb, ng, nd := t.Shape()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for li := 0; li < nl; li++ {
		for bi := 0; bi < nb; bi++ {
			for gi := 0; gi < ng; gi++ {
				for di := 0; di < nd; di++ {
					li, bi, gi, di := li, bi, gi, di
					g.Go(func() error {
						if err := ctx.Err(); err != nil {
							return err
						}
						bias := device.Bias{
							L:   sw.Length.Values[li],
							W:   width,
							Vgs: sw.Vgs.Values[gi],
							Vds: sw.Vds.Values[di],
							Vbs: sw.Vbs.Values[bi],
						}
						sample, err := bld.Oracle.Evaluate(ctx, bias)
						if err != nil {
							var convErr *simulator.ConvergenceError
							if errors.As(err, &convErr) {
								// Leave the NaN fill and false mask in place.
								return nil
							}
							return fmt.Errorf("oracle at L=%g vbs=%g vgs=%g vds=%g: %w",
								bias.L, bias.Vbs, bias.Vgs, bias.Vds, err)
						}
						t.insert(li, bi, gi, di, sample)
						return nil
					})
				}
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

// insert writes one sample at its multi-index. Each flat offset is written
// by exactly one worker, so no locking is needed.
func (t *Table) insert(l, b, g, d int, s simulator.Sample) {
	idx := t.Index(l, b, g, d)
	t.Data[QID][idx] = s.ID
	t.Data[QGm][idx] = s.Gm
	t.Data[QGds][idx] = s.Gds
	t.Data[QVth][idx] = s.Vth
	t.Data[QVdsat][idx] = s.Vdsat
	t.Data[QCgg][idx] = s.Cgg
	t.Data[QCgs][idx] = s.Cgs
	t.Data[QCgd][idx] = s.Cgd

	// A sample full of non-finite values still counts as produced; the
	// admissibility filter downstream decides what is usable.
	t.Valid[idx] = !math.IsNaN(s.ID)
}
