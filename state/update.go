package state

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/matrix"
	"gonum.org/v1/gonum/mat"
)

// Update applies a linear Gaussian measurement to the whole state: h is the
// measurement Jacobian with one column block per variable of hOrder, res is
// the measurement residual and r the measurement noise covariance. The
// covariance is corrected in closed form and every active variable applies
// its slice of the state correction.
//
// It returns a contract error on mismatched inputs and an error wrapping
// msckf.ErrDivergence if the innovation covariance is not positive definite
// or the corrected covariance has a negative diagonal entry.
func (s *State) Update(hOrder []msckf.Variable, h *mat.Dense, res mat.Vector, r mat.Symmetric) error {
	hID, hSize, err := measOffsets(hOrder)
	if err != nil {
		return fmt.Errorf("invalid measurement ordering: %v", err)
	}

	m := res.Len()
	hr, hc := h.Dims()
	if hr != m || hc != hSize {
		return fmt.Errorf("invalid measurement Jacobian dimensions: [%d x %d]", hr, hc)
	}
	if r.SymmetricDim() != m {
		return fmt.Errorf("invalid measurement noise dimension: %d", r.SymmetricDim())
	}

	n := s.Dim()

	// M = P*H', accumulated through the referenced variables only
	M := mat.NewDense(n, m, nil)
	for _, v := range s.variables {
		mi := M.Slice(v.ID(), v.ID()+v.Size(), 0, m).(*mat.Dense)
		for i, mv := range hOrder {
			covBlock := s.cov.Slice(v.ID(), v.ID()+v.Size(), mv.ID(), mv.ID()+mv.Size())
			hBlock := h.Slice(0, m, hID[i], hID[i]+mv.Size())

			tmp := &mat.Dense{}
			tmp.Mul(covBlock, hBlock.T())
			mi.Add(mi, tmp)
		}
	}

	pSmall, err := s.MarginalCovariance(hOrder)
	if err != nil {
		return err
	}

	// innovation covariance S = H*P*H' + R
	hp := &mat.Dense{}
	hp.Mul(h, pSmall)
	hph := &mat.Dense{}
	hph.Mul(hp, h.T())

	S := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			S.SetSym(i, j, hph.At(i, j)+r.At(i, j))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(S); !ok {
		return fmt.Errorf("innovation covariance is not positive definite: %w", msckf.ErrDivergence)
	}

	// Kalman gain K = M*S^{-1}, via the Cholesky solve S*K' = M'
	kt := &mat.Dense{}
	if err := chol.SolveTo(kt, M.T()); err != nil {
		return fmt.Errorf("innovation covariance solve failed: %w", msckf.ErrDivergence)
	}
	gain := kt.T()

	// Cov -= K*M', mirrored to stay exactly symmetric
	corr := &mat.Dense{}
	corr.Mul(gain, M.T())
	s.cov.Sub(s.cov, corr)
	matrix.Symmetrize(s.cov)

	if matrix.MinDiag(s.cov) < 0 {
		return fmt.Errorf("negative covariance diagonal after update: %w", msckf.ErrDivergence)
	}

	// dx = K*res, applied per variable
	dx := mat.NewVecDense(n, nil)
	dx.MulVec(gain, res)
	for _, v := range s.variables {
		if err := v.Update(dx.SliceVec(v.ID(), v.ID()+v.Size())); err != nil {
			return err
		}
	}

	if s.opts.CalibCameraIntrinsics {
		s.syncCameras()
	}

	return nil
}
