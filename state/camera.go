package state

import "gonum.org/v1/gonum/mat"

// Camera caches the lens model derived from an intrinsics calibration
// variable. The cache is resynchronized after every update that may have
// corrected the calibration.
type Camera struct {
	// value holds the intrinsics the model was built from
	value *mat.VecDense
}

// NewCamera creates a new camera model from the given intrinsics.
func NewCamera(intrinsics mat.Vector) *Camera {
	return &Camera{
		value: mat.VecDenseCopyOf(intrinsics),
	}
}

// Value returns a copy of the intrinsics the model was built from
func (c *Camera) Value() mat.Vector {
	return mat.VecDenseCopyOf(c.value)
}

// SetValue rebuilds the camera model from the given intrinsics
func (c *Camera) SetValue(intrinsics mat.Vector) {
	c.value = mat.VecDenseCopyOf(intrinsics)
}
