package state

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/types"
	"gonum.org/v1/gonum/mat"
)

// Clone duplicates src into a new state variable appended at the end of the
// covariance: the self covariance and all cross covariances of src are
// copied into the new rows and columns, so clone and source start perfectly
// correlated. src may be a top level variable or a component of one.
// It returns the new variable, which has been assigned the next free
// covariance offset, or error if src is not part of the state.
func (s *State) Clone(src msckf.Variable) (msckf.Variable, error) {
	var target msckf.Variable
	for _, v := range s.variables {
		if v == src {
			target = v
			break
		}
		if sub := v.SubVariable(src); sub == src {
			target = sub
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("clone source is not a state variable or a component of one")
	}

	size := target.Size()
	old := s.Dim()
	loc := target.ID()

	grown := mat.NewDense(old+size, old+size, nil)
	grown.Slice(0, old, 0, old).(*mat.Dense).Copy(s.cov)
	grown.Slice(old, old+size, old, old+size).(*mat.Dense).Copy(s.cov.Slice(loc, loc+size, loc, loc+size))
	grown.Slice(0, old, old, old+size).(*mat.Dense).Copy(s.cov.Slice(0, old, loc, loc+size))
	grown.Slice(old, old+size, 0, old).(*mat.Dense).Copy(s.cov.Slice(loc, loc+size, 0, old))
	s.cov = grown

	c := target.Clone()
	c.SetLocalID(old)
	s.variables = append(s.variables, c)

	return c, nil
}

// AugmentClone clones the IMU pose into the sliding window at the current
// timestamp. omega is the angular velocity at clone time; when time offset
// calibration is enabled it forms, together with the IMU velocity, the first
// order sensitivity of the new clone to a time offset perturbation, and the
// corresponding cross covariance is accumulated into the clone blocks.
// It returns error if omega is malformed while time offset calibration is
// enabled, a clone already exists at the current timestamp or the cloned
// variable is not a pose; nothing is cloned on any error path.
func (s *State) AugmentClone(omega mat.Vector) (*types.Pose, error) {
	if s.opts.CalibCameraTimeOffset && omega.Len() != 3 {
		return nil, fmt.Errorf("invalid angular velocity dimension: %d", omega.Len())
	}
	if _, ok := s.clones[s.timestamp]; ok {
		return nil, fmt.Errorf("clone already exists at timestamp %.9f", s.timestamp)
	}

	cloned, err := s.Clone(s.imu.Pose())
	if err != nil {
		return nil, err
	}

	pose, ok := cloned.(*types.Pose)
	if !ok {
		return nil, fmt.Errorf("cloned variable is not a pose: %T", cloned)
	}

	s.mu.Lock()
	s.clones[s.timestamp] = pose
	s.mu.Unlock()

	if s.opts.CalibCameraTimeOffset {
		// clone sensitivity to a time offset perturbation: [omega; vel]
		dcdt := mat.NewDense(pose.Size(), 1, nil)
		vel := s.imu.Vel().Value()
		for i := 0; i < 3; i++ {
			dcdt.Set(i, 0, omega.AtVec(i))
			dcdt.Set(i+3, 0, vel.AtVec(i))
		}

		n := s.Dim()
		dtID := s.calibDt.ID()
		poseID := pose.ID()

		cols := &mat.Dense{}
		cols.Mul(s.cov.Slice(0, n, dtID, dtID+1), dcdt.T())
		colBlock := s.cov.Slice(0, n, poseID, poseID+pose.Size()).(*mat.Dense)
		colBlock.Add(colBlock, cols)

		rows := &mat.Dense{}
		rows.Mul(dcdt, s.cov.Slice(dtID, dtID+1, 0, n))
		rowBlock := s.cov.Slice(poseID, poseID+pose.Size(), 0, n).(*mat.Dense)
		rowBlock.Add(rowBlock, rows)
	}

	return pose, nil
}
