package simulator

import (
	"context"
	"math"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/device"
)

// Node and branch assignment for the single-transistor bias circuit.
// Ideal sources drive gate, drain terminal and bulk against ground; the
// model's series RD/RS sit between the terminals and the channel, so the
// channel bias must be solved for, not read off the sources.
//
//	1: gate  2: drain terminal  3: internal drain  4: internal source  5: bulk
//	6..8: branch currents of VG, VD, VB
const (
	nodeGate = iota + 1
	nodeDrainTerm
	nodeDrain
	nodeSource
	nodeBulk
	branchVG
	branchVD
	branchVB
	matrixSize = branchVB
)

// Harness is the built-in simulation oracle: it stamps the bias circuit
// into a sparse MNA matrix and runs Newton-Raphson until the channel
// voltages settle. Safe for concurrent use; every Evaluate call builds its
// own matrix.
type Harness struct {
	Model *device.Mosfet

	MaxIter int
	RelTol  float64
	AbsTol  float64
	Gmin    float64
}

func NewHarness(model *device.Mosfet) *Harness {
	return &Harness{
		Model:   model,
		MaxIter: 100,
		RelTol:  1e-6,
		AbsTol:  1e-12,
		Gmin:    1e-12,
	}
}

func (h *Harness) Evaluate(ctx context.Context, b device.Bias) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	mat, err := newMatrix(matrixSize)
	if err != nil {
		return Sample{}, err
	}
	defer mat.Destroy()

	solution, err := h.solve(mat, b, 0)
	if err != nil {
		// Gmin stepping fallback, as in operating point analysis.
		gmin := h.Gmin * math.Pow(10, 10)
		for gmin >= h.Gmin {
			if solution, err = h.solve(mat, b, gmin); err != nil {
				return Sample{}, err
			}
			gmin /= 10
		}
		if solution, err = h.solve(mat, b, 0); err != nil {
			return Sample{}, err
		}
	}

	op := h.Model.Evaluate(h.channelBias(b, solution))
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

// channelBias reads the device terminal voltages out of a solution vector.
func (h *Harness) channelBias(b device.Bias, v []float64) device.Bias {
	return device.Bias{
		L:   b.L,
		W:   b.W,
		Vgs: v[nodeGate] - v[nodeSource],
		Vds: v[nodeDrain] - v[nodeSource],
		Vbs: v[nodeBulk] - v[nodeSource],
	}
}

// solve runs the Newton-Raphson loop at one extra gmin loading.
func (h *Harness) solve(mat *Matrix, b device.Bias, gmin float64) ([]float64, error) {
	var oldSolution []float64

	bias := b // applied voltages double as the first channel-bias guess
	for iter := 0; iter < h.MaxIter; iter++ {
		mat.Clear()

		if iter > 0 {
			bias = h.channelBias(b, oldSolution)
		}

		h.stampLinear(mat, b)
		h.stampMosfet(mat, bias)
		mat.LoadGmin(gmin + h.Gmin)

		if err := mat.Solve(); err != nil {
			return nil, err
		}
		solution := mat.Solution()

		if iter > 0 && h.converged(oldSolution, solution) {
			return solution, nil
		}
		if oldSolution == nil {
			oldSolution = make([]float64, len(solution))
		}
		copy(oldSolution, solution)
	}

	return nil, &ConvergenceError{Bias: b, Iterations: h.MaxIter}
}

func (h *Harness) converged(oldSol, newSol []float64) bool {
	for i := 1; i < len(newSol) && i < len(oldSol); i++ {
		diff := math.Abs(newSol[i] - oldSol[i])
		limit := h.RelTol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i])) + h.AbsTol
		if diff > limit {
			return false
		}
	}
	return true
}

// stampLinear loads the ideal sources and the model's series resistances.
func (h *Harness) stampLinear(mat *Matrix, b device.Bias) {
	h.stampVSource(mat, nodeGate, branchVG, b.Vgs)
	h.stampVSource(mat, nodeDrainTerm, branchVD, b.Vds)
	h.stampVSource(mat, nodeBulk, branchVB, b.Vbs)

	h.stampResistor(mat, nodeDrainTerm, nodeDrain, math.Max(h.Model.RD, 1e-3))
	h.stampResistor(mat, nodeSource, 0, math.Max(h.Model.RS, 1e-3))
}

func (h *Harness) stampVSource(mat *Matrix, node, branch int, value float64) {
	mat.AddElement(node, branch, 1)
	mat.AddElement(branch, node, 1)
	mat.AddRHS(branch, value)
}

func (h *Harness) stampResistor(mat *Matrix, n1, n2 int, r float64) {
	g := 1.0 / r
	mat.AddElement(n1, n1, g)
	mat.AddElement(n2, n2, g)
	mat.AddElement(n1, n2, -g)
	mat.AddElement(n2, n1, -g)
}

// stampMosfet loads the linearized companion model at the given channel
// bias. Conductances are magnitudes for both polarities, so the stamp
// pattern is polarity-independent; the signed bias lives in the RHS terms.
func (h *Harness) stampMosfet(mat *Matrix, bias device.Bias) {
	op := h.Model.Evaluate(bias)

	nd, ng, ns, nb := nodeDrain, nodeGate, nodeSource, nodeBulk

	mat.AddElement(nd, nd, op.Gds)
	mat.AddElement(nd, ng, op.Gm)
	mat.AddElement(nd, ns, -op.Gds-op.Gm-op.Gmbs)
	mat.AddElement(nd, nb, op.Gmbs)
	mat.AddRHS(nd, -op.ID+op.Gds*bias.Vds+op.Gm*bias.Vgs+op.Gmbs*bias.Vbs)

	mat.AddElement(ns, ns, op.Gds+op.Gm+op.Gmbs)
	mat.AddElement(ns, nd, -op.Gds)
	mat.AddElement(ns, ng, -op.Gm)
	mat.AddElement(ns, nb, -op.Gmbs)
	mat.AddRHS(ns, op.ID-op.Gds*bias.Vds-op.Gm*bias.Vgs-op.Gmbs*bias.Vbs)
}
