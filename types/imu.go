package types

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
)

// IMU is the composite inertial variable: pose, velocity, gyroscope bias
// and accelerometer bias, 15 error state dimensions in total. All of its
// components are addressable sub-variables, so the pose can be cloned into
// the sliding window without cloning the whole inertial block.
type IMU struct {
	// id is the covariance offset of the variable
	id int
	// pose is the orientation and position of the IMU
	pose *Pose
	// vel is the IMU velocity
	vel *Vec
	// bg is the gyroscope bias
	bg *Vec
	// ba is the accelerometer bias
	ba *Vec
}

// NewIMU creates a new zero valued inertial variable.
func NewIMU() *IMU {
	return &IMU{
		id:   -1,
		pose: NewPose(),
		vel:  NewVec(3),
		bg:   NewVec(3),
		ba:   NewVec(3),
	}
}

// ID returns the covariance offset of the variable
func (m *IMU) ID() int {
	return m.id
}

// SetLocalID sets the covariance offset of the IMU and all its components
func (m *IMU) SetLocalID(id int) {
	m.id = id

	if id < 0 {
		m.pose.SetLocalID(id)
		m.vel.SetLocalID(id)
		m.bg.SetLocalID(id)
		m.ba.SetLocalID(id)
		return
	}

	m.pose.SetLocalID(id)
	m.vel.SetLocalID(id + m.pose.Size())
	m.bg.SetLocalID(id + m.pose.Size() + m.vel.Size())
	m.ba.SetLocalID(id + m.pose.Size() + m.vel.Size() + m.bg.Size())
}

// Size returns the error state dimension of the IMU
func (m *IMU) Size() int {
	return m.pose.Size() + m.vel.Size() + m.bg.Size() + m.ba.Size()
}

// Pose returns the pose component of the IMU
func (m *IMU) Pose() *Pose {
	return m.pose
}

// Vel returns the velocity component of the IMU
func (m *IMU) Vel() *Vec {
	return m.vel
}

// BiasGyro returns the gyroscope bias component of the IMU
func (m *IMU) BiasGyro() *Vec {
	return m.bg
}

// BiasAccel returns the accelerometer bias component of the IMU
func (m *IMU) BiasAccel() *Vec {
	return m.ba
}

// Update applies dx to the IMU components in error state order:
// orientation, position, velocity, gyroscope bias, accelerometer bias.
// It returns error if dx does not have 15 elements.
func (m *IMU) Update(dx mat.Vector) error {
	if dx.Len() != m.Size() {
		return fmt.Errorf("invalid correction dimension: %d", dx.Len())
	}

	segment := func(from, size int) mat.Vector {
		seg := mat.NewVecDense(size, nil)
		for i := 0; i < size; i++ {
			seg.SetVec(i, dx.AtVec(from+i))
		}
		return seg
	}

	if err := m.pose.Update(segment(0, 6)); err != nil {
		return err
	}
	if err := m.vel.Update(segment(6, 3)); err != nil {
		return err
	}
	if err := m.bg.Update(segment(9, 3)); err != nil {
		return err
	}
	return m.ba.Update(segment(12, 3))
}

// Clone returns a value copy of the IMU with undefined ID
func (m *IMU) Clone() msckf.Variable {
	return &IMU{
		id:   -1,
		pose: m.pose.Clone().(*Pose),
		vel:  m.vel.Clone().(*Vec),
		bg:   m.bg.Clone().(*Vec),
		ba:   m.ba.Clone().(*Vec),
	}
}

// SubVariable returns v if it is a component of the IMU (the pose, the pose
// orientation or position, the velocity or either bias), nil otherwise.
func (m *IMU) SubVariable(v msckf.Variable) msckf.Variable {
	if v == m.pose {
		return m.pose
	}
	if sub := m.pose.SubVariable(v); sub != nil {
		return sub
	}
	if v == m.vel {
		return m.vel
	}
	if v == m.bg {
		return m.bg
	}
	if v == m.ba {
		return m.ba
	}

	return nil
}

// String implements the Stringer interface.
func (m *IMU) String() string {
	return fmt.Sprintf("IMU{id=%d, pose=%v}", m.id, m.pose)
}
