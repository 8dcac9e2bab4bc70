package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Zero is zero noise: zero mean and zero covariance.
// Propagating with Zero process noise leaves the covariance driven by the
// state transition alone.
type Zero struct {
	// mean stores zero mean values
	mean []float64
	// cov is zero covariance matrix
	cov *mat.SymDense
}

// NewZero creates new zero noise of the given dimension.
// It returns error if size is negative.
func NewZero(size int) (*Zero, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", size)
	}

	mean := make([]float64, size)
	cov := mat.NewSymDense(size, nil)

	return &Zero{
		mean: mean,
		cov:  cov,
	}, nil
}

// Sample generates an empty sample and returns it: a vector of zero values.
func (e *Zero) Sample() mat.Vector {
	return mat.NewVecDense(len(e.mean), nil)
}

// Cov returns an empty covariance matrix: a symmetric matrix of zero values.
func (e *Zero) Cov() mat.Symmetric {
	cov := mat.NewSymDense(e.cov.SymmetricDim(), nil)
	cov.CopySym(e.cov)

	return cov
}

// Mean returns Zero mean.
func (e *Zero) Mean() []float64 {
	mean := make([]float64, len(e.mean))
	copy(mean, e.mean)

	return mean
}

// Reset resets Zero noise.
func (e *Zero) Reset() {}

// String implements the Stringer interface.
func (e *Zero) String() string {
	return fmt.Sprintf("Zero{\nMean=%v\nCov=%v\n}", e.Mean(), mat.Formatted(e.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
