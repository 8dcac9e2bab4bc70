package state

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/matrix"
	"gonum.org/v1/gonum/mat"
)

// MarginalCovariance gathers the joint covariance of the variables of order
// into a dense matrix laid out in the sequence of order. The layout must
// match the column ordering of any Jacobian the caller multiplies it with.
// It returns error if order is empty or contains inactive variables.
func (s *State) MarginalCovariance(order []msckf.Variable) (*mat.Dense, error) {
	_, size, err := measOffsets(order)
	if err != nil {
		return nil, err
	}

	small := mat.NewDense(size, size, nil)

	iIdx := 0
	for _, vi := range order {
		kIdx := 0
		for _, vk := range order {
			small.Slice(iIdx, iIdx+vi.Size(), kIdx, kIdx+vk.Size()).(*mat.Dense).
				Copy(s.cov.Slice(vi.ID(), vi.ID()+vi.Size(), vk.ID(), vk.ID()+vk.Size()))
			kIdx += vk.Size()
		}
		iIdx += vi.Size()
	}

	return small, nil
}

// FullCovariance returns a copy of the whole active covariance matrix
func (s *State) FullCovariance() *mat.Dense {
	return mat.DenseCopyOf(s.cov)
}

// SetInitialCovariance scatter-writes cov into the active covariance per the
// given variable ordering: block (i, k) of cov overwrites the cross block of
// order[i] and order[k]. Blocks between a variable of order and a variable
// outside it are assumed to already be zero; this is not checked.
// It returns error if order is empty, contains inactive variables or cov
// does not match the total ordering size.
func (s *State) SetInitialCovariance(cov mat.Matrix, order []msckf.Variable) error {
	_, size, err := measOffsets(order)
	if err != nil {
		return err
	}

	cr, cc := cov.Dims()
	if cr != size || cc != size {
		return fmt.Errorf("invalid covariance dimensions: [%d x %d]", cr, cc)
	}

	covDense := mat.DenseCopyOf(cov)

	iIdx := 0
	for _, vi := range order {
		kIdx := 0
		for _, vk := range order {
			s.cov.Slice(vi.ID(), vi.ID()+vi.Size(), vk.ID(), vk.ID()+vk.Size()).(*mat.Dense).
				Copy(covDense.Slice(iIdx, iIdx+vi.Size(), kIdx, kIdx+vk.Size()))
			kIdx += vk.Size()
		}
		iIdx += vi.Size()
	}
	matrix.Symmetrize(s.cov)

	return nil
}
