package state

import (
	"fmt"
	"math"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// chi2Quantile is the gating percentile of the chi squared distribution.
const chi2Quantile = 0.95

// Initialize admits newVar into the state from a measurement that is only
// locally invertible in the new variable: hR is the Jacobian w.r.t. the
// existing variables of hOrder, hL the Jacobian w.r.t. newVar and r the
// measurement noise, which must be diagonal with identical entries since
// the nullspace projection assumes rotation invariant noise.
//
// Givens rotations zero hL below its diagonal, splitting the system into an
// invertible part that seeds the new variable and a nullspace projected part
// independent of it. The projected residual is gated with a chi squared test
// at the 95th percentile scaled by chi2Mult: on rejection Initialize returns
// false with the state untouched. On acceptance the new variable is appended
// to the state and the projected part is applied as a regular update.
// The supplied matrices are not modified.
func (s *State) Initialize(newVar msckf.Variable, hOrder []msckf.Variable, hR, hL *mat.Dense, r mat.Symmetric, res mat.Vector, chi2Mult float64) (bool, error) {
	if s.has(newVar) {
		return false, fmt.Errorf("variable is already in the state at offset %d", newVar.ID())
	}
	sigma, err := isotropicSigma(r)
	if err != nil {
		return false, err
	}

	_, hSize, err := measOffsets(hOrder)
	if err != nil {
		return false, fmt.Errorf("invalid measurement ordering: %v", err)
	}

	size := newVar.Size()
	rows, cols := hL.Dims()
	if cols != size {
		return false, fmt.Errorf("invalid new variable Jacobian dimensions: [%d x %d]", rows, cols)
	}
	if rows < size {
		return false, fmt.Errorf("measurement has fewer rows than the new variable size: %d < %d", rows, size)
	}
	hrRows, hrCols := hR.Dims()
	if hrRows != rows || hrCols != hSize || res.Len() != rows || r.SymmetricDim() != rows {
		return false, fmt.Errorf("mismatched measurement dimensions: H_R [%d x %d], res %d, R %d", hrRows, hrCols, res.Len(), r.SymmetricDim())
	}

	// work on copies, the rotations are applied in place
	HL := mat.DenseCopyOf(hL)
	HR := mat.DenseCopyOf(hR)
	rv := mat.VecDenseCopyOf(res)

	// zero H_L below its diagonal, bottom row to top per column, applying
	// the identical rotations to H_R and res in lockstep
	for col := 0; col < cols; col++ {
		for row := rows - 1; row > col; row-- {
			c, sn, ok := givens(HL.At(row-1, col), HL.At(row, col))
			if !ok {
				continue
			}
			rotateRows(HL, row-1, row, col, c, sn)
			rotateRows(HR, row-1, row, 0, c, sn)
			rotateVec(rv, row-1, row, c, sn)
		}
	}

	// invertible initializing system
	hxInit := HR.Slice(0, size, 0, hrCols).(*mat.Dense)
	hfInit := HL.Slice(0, size, 0, size).(*mat.Dense)
	resInit := rv.SliceVec(0, size)
	rInit := isotropicCov(sigma, size)

	// nullspace projected updating system and its gate
	chi2 := 0.0
	if rows > size {
		hUp := HR.Slice(size, rows, 0, hrCols).(*mat.Dense)
		resUp := rv.SliceVec(size, rows)

		pUp, err := s.MarginalCovariance(hOrder)
		if err != nil {
			return false, err
		}

		hp := &mat.Dense{}
		hp.Mul(hUp, pUp)
		hph := &mat.Dense{}
		hph.Mul(hp, hUp.T())

		S := mat.NewSymDense(rows-size, nil)
		for i := 0; i < rows-size; i++ {
			for j := i; j < rows-size; j++ {
				v := hph.At(i, j)
				if i == j {
					v += sigma
				}
				S.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(S); !ok {
			return false, fmt.Errorf("gating covariance is not positive definite: %w", msckf.ErrDivergence)
		}

		w := mat.NewVecDense(rows-size, nil)
		if err := chol.SolveVecTo(w, resUp); err != nil {
			return false, fmt.Errorf("gating covariance solve failed: %w", msckf.ErrDivergence)
		}
		chi2 = mat.Dot(resUp, w)
	}

	chi2Check := distuv.ChiSquared{K: float64(rows)}.Quantile(chi2Quantile)
	if chi2 > chi2Mult*chi2Check {
		return false, nil
	}

	if err := s.InitializeInvertible(newVar, hOrder, hxInit, hfInit, rInit, resInit); err != nil {
		return false, err
	}

	if rows > size {
		hUp := HR.Slice(size, rows, 0, hrCols).(*mat.Dense)
		resUp := rv.SliceVec(size, rows)
		rUp := isotropicCov(sigma, rows-size)
		if err := s.Update(hOrder, hUp, resUp, rUp); err != nil {
			return false, err
		}
	}

	return true, nil
}

// InitializeInvertible admits newVar into the state from a fully invertible
// measurement: hL must be square and invertible (caller responsibility) and
// r must be diagonal with identical entries. The covariance is augmented
// with the new variable block, the new variable value is corrected with the
// inverted residual and the variable is appended to the state with the next
// free covariance offset.
func (s *State) InitializeInvertible(newVar msckf.Variable, hOrder []msckf.Variable, hR, hL *mat.Dense, r mat.Symmetric, res mat.Vector) error {
	if s.has(newVar) {
		return fmt.Errorf("variable is already in the state at offset %d", newVar.ID())
	}
	if _, err := isotropicSigma(r); err != nil {
		return err
	}

	size := newVar.Size()
	hlRows, hlCols := hL.Dims()
	if hlRows != hlCols || hlRows != size {
		return fmt.Errorf("invalid new variable Jacobian dimensions: [%d x %d]", hlRows, hlCols)
	}

	hID, hSize, err := measOffsets(hOrder)
	if err != nil {
		return fmt.Errorf("invalid measurement ordering: %v", err)
	}

	m := res.Len()
	hrRows, hrCols := hR.Dims()
	if hrRows != m || hlRows != m || r.SymmetricDim() != m {
		return fmt.Errorf("mismatched measurement dimensions: H_R [%d x %d], res %d, R %d", hrRows, hrCols, m, r.SymmetricDim())
	}
	if hrCols != hSize {
		return fmt.Errorf("invalid measurement Jacobian dimensions: [%d x %d]", hrRows, hrCols)
	}

	n := s.Dim()

	// M = P*H_R', accumulated through the referenced variables only
	M := mat.NewDense(n, m, nil)
	for _, v := range s.variables {
		mi := M.Slice(v.ID(), v.ID()+v.Size(), 0, m).(*mat.Dense)
		for i, mv := range hOrder {
			covBlock := s.cov.Slice(v.ID(), v.ID()+v.Size(), mv.ID(), mv.ID()+mv.Size())
			hBlock := hR.Slice(0, m, hID[i], hID[i]+mv.Size())

			tmp := &mat.Dense{}
			tmp.Mul(covBlock, hBlock.T())
			mi.Add(mi, tmp)
		}
	}

	pSmall, err := s.MarginalCovariance(hOrder)
	if err != nil {
		return err
	}

	// measurement covariance M_meas = H_R*P*H_R' + R
	hp := &mat.Dense{}
	hp.Mul(hR, pSmall)
	mMeas := &mat.Dense{}
	mMeas.Mul(hp, hR.T())
	mMeas.Add(mMeas, r)

	hlInv := &mat.Dense{}
	if err := hlInv.Inverse(hL); err != nil {
		return fmt.Errorf("new variable Jacobian is not invertible: %v", err)
	}

	// covariance of the new variable P_LL = H_L^{-1}*M_meas*H_L^{-T}
	tmp := &mat.Dense{}
	tmp.Mul(hlInv, mMeas)
	pLL := &mat.Dense{}
	pLL.Mul(tmp, hlInv.T())

	// augment the covariance; cross block is -M*H_L^{-T}
	cross := &mat.Dense{}
	cross.Mul(M, hlInv.T())
	cross.Scale(-1, cross)

	grown := mat.NewDense(n+size, n+size, nil)
	grown.Slice(0, n, 0, n).(*mat.Dense).Copy(s.cov)
	grown.Slice(0, n, n, n+size).(*mat.Dense).Copy(cross)
	grown.Slice(n, n+size, 0, n).(*mat.Dense).Copy(cross.T())
	grown.Slice(n, n+size, n, n+size).(*mat.Dense).Copy(pLL)
	s.cov = grown

	// correct the new variable with the inverted residual
	dx := mat.NewVecDense(size, nil)
	dx.MulVec(hlInv, res)
	if err := newVar.Update(dx); err != nil {
		return err
	}

	newVar.SetLocalID(n)
	s.variables = append(s.variables, newVar)

	return nil
}

// isotropicSigma checks that r is diagonal with identical entries and
// returns the common diagonal value.
func isotropicSigma(r mat.Symmetric) (float64, error) {
	m := r.SymmetricDim()
	if m == 0 {
		return 0, fmt.Errorf("empty measurement noise")
	}

	sigma := r.At(0, 0)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			if i == j && r.At(i, j) != sigma {
				return 0, fmt.Errorf("measurement noise is not isotropic: %v != %v", r.At(i, j), sigma)
			}
			if i != j && r.At(i, j) != 0 {
				return 0, fmt.Errorf("measurement noise is not diagonal: %v at [%d, %d]", r.At(i, j), i, j)
			}
		}
	}

	return sigma, nil
}

// isotropicCov returns the scaled identity sigma*I of the given dimension.
func isotropicCov(sigma float64, dim int) *mat.SymDense {
	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, sigma)
	}

	return cov
}

// givens returns the rotation (c, s) that maps (a, b) onto (hypot(a, b), 0).
// It reports false when a and b are already (anything, 0) up to exact zero.
func givens(a, b float64) (c, s float64, ok bool) {
	if b == 0 {
		return 1, 0, false
	}
	h := math.Hypot(a, b)

	return a / h, b / h, true
}

// rotateRows applies the Givens rotation (c, s) to rows i and j of m,
// starting at column from.
func rotateRows(m *mat.Dense, i, j, from int, c, s float64) {
	_, cols := m.Dims()
	for k := from; k < cols; k++ {
		vi, vj := m.At(i, k), m.At(j, k)
		m.Set(i, k, c*vi+s*vj)
		m.Set(j, k, -s*vi+c*vj)
	}
}

// rotateVec applies the Givens rotation (c, s) to elements i and j of v.
func rotateVec(v *mat.VecDense, i, j int, c, s float64) {
	vi, vj := v.AtVec(i), v.AtVec(j)
	v.SetVec(i, c*vi+s*vj)
	v.SetVec(j, -s*vi+c*vj)
}
