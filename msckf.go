package msckf

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrDivergence indicates numerical breakdown of the filter: a negative
// variance appeared on the covariance diagonal or an innovation covariance
// failed to factorize. Callers should detect it with errors.Is and
// reinitialize the filter rather than keep feeding it measurements.
var ErrDivergence = errors.New("filter divergence")

// Variable is a single block of the estimator state vector.
// Concrete variables (pose, velocity, bias, landmark, calibration) define
// their own generalized addition in Update: manifold composition for
// orientations, plain addition for vector blocks.
type Variable interface {
	// ID returns the variable offset in the joint covariance matrix.
	// Inactive variables have ID -1.
	ID() int
	// SetLocalID sets the covariance offset of the variable
	SetLocalID(id int)
	// Size returns the error state dimension of the variable
	Size() int
	// Update applies the local correction dx to the variable value.
	// It returns error if dx does not have Size elements.
	Update(dx mat.Vector) error
	// Clone returns a value copy of the variable with undefined ID
	Clone() Variable
	// SubVariable returns v if it is a component of this variable,
	// nil otherwise. Leaf variables always return nil.
	SubVariable(v Variable) Variable
}

// Noise is additive noise entering the filter
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
