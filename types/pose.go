package types

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
)

// Pose is an orientation and position variable with a 6 dof error state:
// the first three elements correct the orientation, the last three the
// position. Its components are addressable sub-variables.
type Pose struct {
	// id is the covariance offset of the variable
	id int
	// q is the orientation component
	q *Quat
	// p is the position component
	p *Vec
}

// NewPose creates a new pose variable at identity orientation and zero position.
func NewPose() *Pose {
	return &Pose{
		id: -1,
		q:  NewQuat(),
		p:  NewVec(3),
	}
}

// ID returns the covariance offset of the variable
func (t *Pose) ID() int {
	return t.id
}

// SetLocalID sets the covariance offset of the pose and its components
func (t *Pose) SetLocalID(id int) {
	t.id = id
	t.q.SetLocalID(id)

	pid := id
	if id >= 0 {
		pid = id + t.q.Size()
	}
	t.p.SetLocalID(pid)
}

// Size returns the error state dimension of the pose
func (t *Pose) Size() int {
	return t.q.Size() + t.p.Size()
}

// Quat returns the orientation component of the pose
func (t *Pose) Quat() *Quat {
	return t.q
}

// Pos returns the position component of the pose
func (t *Pose) Pos() *Vec {
	return t.p
}

// Update applies dx to the pose: dx[0:3] corrects the orientation on its
// manifold, dx[3:6] is added to the position.
// It returns error if dx does not have 6 elements.
func (t *Pose) Update(dx mat.Vector) error {
	if dx.Len() != t.Size() {
		return fmt.Errorf("invalid correction dimension: %d", dx.Len())
	}

	dq := mat.NewVecDense(3, []float64{dx.AtVec(0), dx.AtVec(1), dx.AtVec(2)})
	if err := t.q.Update(dq); err != nil {
		return err
	}

	dp := mat.NewVecDense(3, []float64{dx.AtVec(3), dx.AtVec(4), dx.AtVec(5)})
	return t.p.Update(dp)
}

// Clone returns a value copy of the pose with undefined ID
func (t *Pose) Clone() msckf.Variable {
	return &Pose{
		id: -1,
		q:  t.q.Clone().(*Quat),
		p:  t.p.Clone().(*Vec),
	}
}

// SubVariable returns v if it is the orientation or position component of
// the pose, nil otherwise.
func (t *Pose) SubVariable(v msckf.Variable) msckf.Variable {
	if v == t.q {
		return t.q
	}
	if v == t.p {
		return t.p
	}

	return nil
}

// String implements the Stringer interface.
func (t *Pose) String() string {
	return fmt.Sprintf("Pose{id=%d, q=%v, p=%v}", t.id, t.q.Value(), mat.Formatted(t.p.value.T()))
}
