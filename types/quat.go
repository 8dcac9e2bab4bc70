package types

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Quat is a unit quaternion orientation variable with a 3 dof error state.
// Update composes a small angle rotation with the current orientation and
// renormalizes, so the value stays on the unit sphere.
type Quat struct {
	// id is the covariance offset of the variable
	id int
	// value is the current unit quaternion
	value quat.Number
}

// NewQuat creates a new orientation variable set to identity rotation.
func NewQuat() *Quat {
	return &Quat{
		id:    -1,
		value: quat.Number{Real: 1},
	}
}

// ID returns the covariance offset of the variable
func (q *Quat) ID() int {
	return q.id
}

// SetLocalID sets the covariance offset of the variable
func (q *Quat) SetLocalID(id int) {
	q.id = id
}

// Size returns the error state dimension of the orientation
func (q *Quat) Size() int {
	return 3
}

// Value returns the current unit quaternion
func (q *Quat) Value() quat.Number {
	return q.value
}

// SetValue sets the orientation to val, normalizing it.
// It returns error if val has zero norm.
func (q *Quat) SetValue(val quat.Number) error {
	n := quat.Abs(val)
	if n == 0 {
		return fmt.Errorf("invalid orientation value: %v", val)
	}
	q.value = quat.Scale(1/n, val)

	return nil
}

// Update composes the small angle rotation dx with the current orientation.
// It returns error if dx does not have 3 elements.
func (q *Quat) Update(dx mat.Vector) error {
	if dx.Len() != 3 {
		return fmt.Errorf("invalid correction dimension: %d", dx.Len())
	}

	// first order small angle quaternion
	dq := quat.Number{
		Real: 1,
		Imag: 0.5 * dx.AtVec(0),
		Jmag: 0.5 * dx.AtVec(1),
		Kmag: 0.5 * dx.AtVec(2),
	}
	v := quat.Mul(dq, q.value)
	q.value = quat.Scale(1/quat.Abs(v), v)

	return nil
}

// Clone returns a value copy of the orientation with undefined ID
func (q *Quat) Clone() msckf.Variable {
	return &Quat{
		id:    -1,
		value: q.value,
	}
}

// SubVariable always returns nil: Quat is a leaf variable
func (q *Quat) SubVariable(_ msckf.Variable) msckf.Variable {
	return nil
}

// String implements the Stringer interface.
func (q *Quat) String() string {
	return fmt.Sprintf("Quat{id=%d, value=%v}", q.id, q.value)
}
