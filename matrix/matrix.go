package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Symmetrize mirrors the upper triangle of m onto its lower triangle so
// m becomes exactly symmetric. It panics if m is not square.
func Symmetrize(m *mat.Dense) {
	r, c := m.Dims()
	if r != c {
		panic("matrix: symmetrize of non-square matrix")
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			m.Set(j, i, m.At(i, j))
		}
	}
}

// Diag returns a slice containing the diagonal of m.
func Diag(m *mat.Dense) []float64 {
	r, c := m.Dims()
	if c < r {
		r = c
	}

	diag := make([]float64, r)
	for i := 0; i < r; i++ {
		diag[i] = m.At(i, i)
	}

	return diag
}

// MinDiag returns the smallest diagonal entry of m.
// It panics if m is empty.
func MinDiag(m *mat.Dense) float64 {
	return floats.Min(Diag(m))
}
