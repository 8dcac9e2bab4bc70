package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestIMU(t *testing.T) {
	assert := assert.New(t)

	m := NewIMU()
	assert.Equal(-1, m.ID())
	assert.Equal(15, m.Size())
	assert.NotNil(m.Pose())
	assert.NotNil(m.Vel())
	assert.NotNil(m.BiasGyro())
	assert.NotNil(m.BiasAccel())
}

func TestIMUSetLocalID(t *testing.T) {
	assert := assert.New(t)

	m := NewIMU()
	m.SetLocalID(0)

	// component offsets cascade through the whole inertial block
	assert.Equal(0, m.Pose().ID())
	assert.Equal(0, m.Pose().Quat().ID())
	assert.Equal(3, m.Pose().Pos().ID())
	assert.Equal(6, m.Vel().ID())
	assert.Equal(9, m.BiasGyro().ID())
	assert.Equal(12, m.BiasAccel().ID())

	m.SetLocalID(-1)
	assert.Equal(-1, m.Pose().ID())
	assert.Equal(-1, m.Vel().ID())
	assert.Equal(-1, m.BiasGyro().ID())
	assert.Equal(-1, m.BiasAccel().ID())
}

func TestIMUUpdate(t *testing.T) {
	assert := assert.New(t)

	m := NewIMU()
	dx := mat.NewVecDense(15, nil)
	for i := 3; i < 15; i++ {
		dx.SetVec(i, float64(i))
	}
	assert.NoError(m.Update(dx))

	// each component receives its own error state segment
	assert.True(mat.Equal(mat.NewVecDense(3, []float64{3, 4, 5}), m.Pose().Pos().Value()))
	assert.True(mat.Equal(mat.NewVecDense(3, []float64{6, 7, 8}), m.Vel().Value()))
	assert.True(mat.Equal(mat.NewVecDense(3, []float64{9, 10, 11}), m.BiasGyro().Value()))
	assert.True(mat.Equal(mat.NewVecDense(3, []float64{12, 13, 14}), m.BiasAccel().Value()))

	// mismatched dimension
	assert.Error(m.Update(mat.NewVecDense(6, nil)))
}

func TestIMUSubVariable(t *testing.T) {
	assert := assert.New(t)

	m := NewIMU()

	// direct components resolve
	assert.Equal(m.Pose(), m.SubVariable(m.Pose()))
	assert.Equal(m.Vel(), m.SubVariable(m.Vel()))
	assert.Equal(m.BiasGyro(), m.SubVariable(m.BiasGyro()))
	assert.Equal(m.BiasAccel(), m.SubVariable(m.BiasAccel()))

	// nested pose components resolve through the pose
	assert.Equal(m.Pose().Quat(), m.SubVariable(m.Pose().Quat()))
	assert.Equal(m.Pose().Pos(), m.SubVariable(m.Pose().Pos()))

	// foreign variables do not
	assert.Nil(m.SubVariable(NewPose()))
	assert.Nil(m.SubVariable(NewVec(3)))
}

func TestIMUClone(t *testing.T) {
	assert := assert.New(t)

	m := NewIMU()
	m.SetLocalID(0)
	assert.NoError(m.Vel().SetValue(mat.NewVecDense(3, []float64{1.0, 2.0, 3.0})))

	c := m.Clone().(*IMU)
	assert.Equal(-1, c.ID())
	assert.True(mat.Equal(m.Vel().Value(), c.Vel().Value()))

	// the clone is deep: its components neither match nor alias the source
	assert.Nil(m.SubVariable(c.Vel()))
	assert.NoError(c.Vel().Update(mat.NewVecDense(3, []float64{1.0, 0, 0})))
	assert.Equal(1.0, m.Vel().Value().AtVec(0))
}
