package types

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
)

// Vec is a vector variable updated by plain addition.
// It is used for velocities, biases and calibration parameters.
type Vec struct {
	// id is the covariance offset of the variable
	id int
	// value is the current estimate
	value *mat.VecDense
}

// NewVec creates a new zero valued vector variable of the given size.
// It panics if size is not positive.
func NewVec(size int) *Vec {
	return &Vec{
		id:    -1,
		value: mat.NewVecDense(size, nil),
	}
}

// ID returns the covariance offset of the variable
func (v *Vec) ID() int {
	return v.id
}

// SetLocalID sets the covariance offset of the variable
func (v *Vec) SetLocalID(id int) {
	v.id = id
}

// Size returns the dimension of the variable
func (v *Vec) Size() int {
	return v.value.Len()
}

// Value returns a copy of the variable value
func (v *Vec) Value() mat.Vector {
	return mat.VecDenseCopyOf(v.value)
}

// SetValue sets the variable value to val.
// It returns error if val dimension does not match the variable size.
func (v *Vec) SetValue(val mat.Vector) error {
	if val.Len() != v.value.Len() {
		return fmt.Errorf("invalid value dimension: %d", val.Len())
	}
	v.value.CopyVec(val)

	return nil
}

// Update adds dx to the variable value.
// It returns error if dx dimension does not match the variable size.
func (v *Vec) Update(dx mat.Vector) error {
	if dx.Len() != v.value.Len() {
		return fmt.Errorf("invalid correction dimension: %d", dx.Len())
	}
	v.value.AddVec(v.value, dx)

	return nil
}

// Clone returns a value copy of the variable with undefined ID
func (v *Vec) Clone() msckf.Variable {
	return &Vec{
		id:    -1,
		value: mat.VecDenseCopyOf(v.value),
	}
}

// SubVariable always returns nil: Vec is a leaf variable
func (v *Vec) SubVariable(_ msckf.Variable) msckf.Variable {
	return nil
}

// String implements the Stringer interface.
func (v *Vec) String() string {
	return fmt.Sprintf("Vec{id=%d, value=%v}", v.id, mat.Formatted(v.value.T()))
}
