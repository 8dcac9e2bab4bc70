package state

import (
	"errors"
	"testing"

	"golang.org/x/exp/rand"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/matrix"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// identity returns the n x n identity matrix.
func identity(n int) *mat.Dense {
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1.0)
	}

	return eye
}

// randomSPD returns a deterministic symmetric positive definite matrix.
func randomSPD(n int, seed uint64) *mat.Dense {
	rnd := rand.New(rand.NewSource(seed))

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, rnd.NormFloat64())
		}
	}

	spd := &mat.Dense{}
	spd.Mul(a, a.T())
	for i := 0; i < n; i++ {
		spd.Set(i, i, spd.At(i, i)+1e-3)
	}

	return spd
}

func TestPropagateIdentity(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	order := []msckf.Variable{s.IMU()}
	n := s.IMU().Size()

	before := s.FullCovariance()
	err := s.Propagate(order, order, identity(n), mat.NewDense(n, n, nil))
	assert.NoError(err)

	// identity transition with zero noise must leave the covariance untouched
	assert.True(mat.EqualApprox(before, s.FullCovariance(), 1e-14))
}

func TestPropagateSPD(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	order := []msckf.Variable{s.IMU(), s.CalibDt()}
	n := s.Dim()

	assert.NoError(s.SetInitialCovariance(randomSPD(n, 1), order))

	phi := mat.NewDense(n, n, nil)
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			phi.Set(i, j, rnd.NormFloat64())
		}
	}

	err := s.Propagate(order, order, phi, randomSPD(n, 3))
	assert.NoError(err)
	assert.True(matrix.MinDiag(s.FullCovariance()) >= 0)

	// propagated covariance stays symmetric
	cov := s.FullCovariance()
	assert.True(mat.EqualApprox(cov, cov.T(), 1e-9))
}

func TestPropagateContract(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	order := []msckf.Variable{s.IMU()}
	n := s.IMU().Size()

	// empty orderings
	assert.Error(s.Propagate(nil, order, identity(n), mat.NewDense(n, n, nil)))
	assert.Error(s.Propagate(order, nil, identity(n), mat.NewDense(n, n, nil)))

	// non-contiguous ordering
	bad := []msckf.Variable{s.CalibDt(), s.IMU()}
	assert.Error(s.Propagate(bad, bad, identity(16), mat.NewDense(16, 16, nil)))

	// mismatched transition dimensions
	assert.Error(s.Propagate(order, order, identity(n+1), mat.NewDense(n+1, n+1, nil)))

	// mismatched noise dimensions
	assert.Error(s.Propagate(order, order, identity(n), mat.NewDense(n-1, n-1, nil)))
}

func TestPropagateDivergence(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	order := []msckf.Variable{s.IMU(), s.CalibDt()}
	n := s.Dim()

	// a large negative definite "noise" drives the diagonal negative
	q := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		q.Set(i, i, -1.0)
	}

	err := s.Propagate(order, order, identity(n), q)
	assert.Error(err)
	assert.True(errors.Is(err, msckf.ErrDivergence))
}
