package state

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/matrix"
	"gonum.org/v1/gonum/mat"
)

// Propagate advances the covariance of the sub-state orderOld across a time
// transition with Jacobian phi and additive process noise q, writing the
// result into the rows and columns of orderNew in place.
//
// Both orderings must be contiguous in covariance offsets; phi must have
// one row per orderNew dimension and one column per orderOld dimension and
// q must be square with the same dimension as phi has rows. The off-diagonal
// rows and columns are overwritten with Cov*Phi' only, which assumes the
// process noise has no cross-coupling with the prior state.
//
// It returns a contract error on empty, non-contiguous or mismatched inputs
// and an error wrapping msckf.ErrDivergence if the propagated covariance has
// a negative diagonal entry.
func (s *State) Propagate(orderNew, orderOld []msckf.Variable, phi *mat.Dense, q mat.Matrix) error {
	sizeNew, err := contiguousSize(orderNew)
	if err != nil {
		return fmt.Errorf("invalid new state ordering: %v", err)
	}
	sizeOld, err := contiguousSize(orderOld)
	if err != nil {
		return fmt.Errorf("invalid old state ordering: %v", err)
	}

	pr, pc := phi.Dims()
	if pr != sizeNew || pc != sizeOld {
		return fmt.Errorf("invalid state transition dimensions: [%d x %d]", pr, pc)
	}
	qr, qc := q.Dims()
	if qr != sizeNew || qc != sizeNew {
		return fmt.Errorf("invalid process noise dimensions: [%d x %d]", qr, qc)
	}

	n := s.Dim()

	// column offset of every old variable inside phi
	phiID := make([]int, len(orderOld))
	it := 0
	for i, v := range orderOld {
		phiID[i] = it
		it += v.Size()
	}

	// covPhiT = Cov*Phi', accumulated per old variable column block
	covPhiT := mat.NewDense(n, pr, nil)
	for i, v := range orderOld {
		covBlock := s.cov.Slice(0, n, v.ID(), v.ID()+v.Size())
		phiBlock := phi.Slice(0, pr, phiID[i], phiID[i]+v.Size())

		tmp := &mat.Dense{}
		tmp.Mul(covBlock, phiBlock.T())
		covPhiT.Add(covPhiT, tmp)
	}

	// phiCovPhiT = Phi*Cov*Phi' + Q
	phiCovPhiT := mat.DenseCopyOf(q)
	for i, v := range orderOld {
		phiBlock := phi.Slice(0, pr, phiID[i], phiID[i]+v.Size())
		cpBlock := covPhiT.Slice(v.ID(), v.ID()+v.Size(), 0, pr)

		tmp := &mat.Dense{}
		tmp.Mul(phiBlock, cpBlock)
		phiCovPhiT.Add(phiCovPhiT, tmp)
	}
	matrix.Symmetrize(phiCovPhiT)

	start := orderNew[0].ID()
	s.cov.Slice(start, start+pr, 0, n).(*mat.Dense).Copy(covPhiT.T())
	s.cov.Slice(0, n, start, start+pr).(*mat.Dense).Copy(covPhiT)
	s.cov.Slice(start, start+pr, start, start+pr).(*mat.Dense).Copy(phiCovPhiT)

	if matrix.MinDiag(s.cov) < 0 {
		return fmt.Errorf("negative covariance diagonal after propagation: %w", msckf.ErrDivergence)
	}

	return nil
}
