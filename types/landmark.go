package types

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
)

// Landmark is a 3 dof point feature variable held in the state.
// ShouldMarg flags the landmark for removal on the next marginalization sweep.
type Landmark struct {
	// id is the covariance offset of the variable
	id int
	// featID is the feature tracker id of the landmark
	featID int
	// value is the landmark position estimate
	value *mat.VecDense
	// ShouldMarg flags the landmark for marginalization
	ShouldMarg bool
}

// NewLandmark creates a new zero valued landmark for the given feature id.
func NewLandmark(featID int) *Landmark {
	return &Landmark{
		id:     -1,
		featID: featID,
		value:  mat.NewVecDense(3, nil),
	}
}

// ID returns the covariance offset of the variable
func (l *Landmark) ID() int {
	return l.id
}

// SetLocalID sets the covariance offset of the variable
func (l *Landmark) SetLocalID(id int) {
	l.id = id
}

// Size returns the dimension of the landmark
func (l *Landmark) Size() int {
	return l.value.Len()
}

// FeatureID returns the feature tracker id of the landmark
func (l *Landmark) FeatureID() int {
	return l.featID
}

// Value returns a copy of the landmark position
func (l *Landmark) Value() mat.Vector {
	return mat.VecDenseCopyOf(l.value)
}

// SetValue sets the landmark position to val.
// It returns error if val dimension does not match the landmark size.
func (l *Landmark) SetValue(val mat.Vector) error {
	if val.Len() != l.value.Len() {
		return fmt.Errorf("invalid value dimension: %d", val.Len())
	}
	l.value.CopyVec(val)

	return nil
}

// Update adds dx to the landmark position.
// It returns error if dx dimension does not match the landmark size.
func (l *Landmark) Update(dx mat.Vector) error {
	if dx.Len() != l.value.Len() {
		return fmt.Errorf("invalid correction dimension: %d", dx.Len())
	}
	l.value.AddVec(l.value, dx)

	return nil
}

// Clone returns a value copy of the landmark with undefined ID
func (l *Landmark) Clone() msckf.Variable {
	return &Landmark{
		id:         -1,
		featID:     l.featID,
		value:      mat.VecDenseCopyOf(l.value),
		ShouldMarg: l.ShouldMarg,
	}
}

// SubVariable always returns nil: Landmark is a leaf variable
func (l *Landmark) SubVariable(_ msckf.Variable) msckf.Variable {
	return nil
}

// String implements the Stringer interface.
func (l *Landmark) String() string {
	return fmt.Sprintf("Landmark{id=%d, feat=%d, marg=%t}", l.id, l.featID, l.ShouldMarg)
}
