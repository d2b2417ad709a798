package simulator

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// Matrix wraps the sparse MNA system for the bias harness. Real-valued,
// 1-based indexing; index 0 is ground and is skipped by the stamps.
type Matrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
}

func newMatrix(size int) (*Matrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		Translate:      true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	m := &Matrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
	}
	// Touch every element once so the sparse structure is allocated.
	for i := 1; i <= size; i++ {
		for j := 1; j <= size; j++ {
			m.matrix.GetElement(int64(i), int64(j))
		}
	}
	return m, nil
}

func (m *Matrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 {
		return // ground node
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

func (m *Matrix) AddRHS(i int, value float64) {
	if i <= 0 {
		return
	}
	m.rhs[i] += value
}

func (m *Matrix) LoadGmin(gmin float64) {
	for i := 1; i <= m.Size; i++ {
		if diag := m.matrix.Diags[i]; diag != nil {
			diag.Real += gmin
		}
	}
}

func (m *Matrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *Matrix) Solve() error {
	var err error

	err = m.matrix.Factor()
	if err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}

	m.solution, err = m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}
	return nil
}

func (m *Matrix) Solution() []float64 {
	return m.solution
}

func (m *Matrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
