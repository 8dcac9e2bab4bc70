package state

import (
	"errors"
	"testing"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/matrix"
	"github.com/milosgajdos/go-msckf/types"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestUpdateScalar(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	dt := s.CalibDt()

	hOrder := []msckf.Variable{dt}
	h := mat.NewDense(1, 1, []float64{1.0})
	res := mat.NewVecDense(1, []float64{0.5})
	r := mat.NewSymDense(1, []float64{1e-12})

	assert.NoError(s.Update(hOrder, h, res, r))

	// a direct, near noiseless observation of a scalar variable drives its
	// variance toward zero and its value toward the residual
	assert.InDelta(0.5, dt.Value().AtVec(0), 1e-6)
	assert.Less(s.FullCovariance().At(dt.ID(), dt.ID()), 1e-9)
	assert.True(matrix.MinDiag(s.FullCovariance()) >= 0)
}

func TestUpdateSPD(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	order := []msckf.Variable{s.IMU(), s.CalibDt()}
	assert.NoError(s.SetInitialCovariance(randomSPD(s.Dim(), 5), order))

	h := mat.NewDense(2, 16, nil)
	h.Set(0, 3, 1.0)
	h.Set(1, 4, 1.0)
	res := mat.NewVecDense(2, []float64{0.1, -0.1})
	r := mat.NewSymDense(2, []float64{1e-2, 0, 0, 1e-2})

	assert.NoError(s.Update(order, h, res, r))
	assert.True(matrix.MinDiag(s.FullCovariance()) >= 0)

	// corrected covariance stays exactly symmetric
	cov := s.FullCovariance()
	assert.True(mat.Equal(cov, cov.T()))
}

func TestUpdateContract(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	hOrder := []msckf.Variable{s.CalibDt()}
	h := mat.NewDense(1, 1, []float64{1.0})
	res := mat.NewVecDense(1, []float64{0.5})
	r := mat.NewSymDense(1, []float64{1e-2})

	// mismatched residual
	assert.Error(s.Update(hOrder, h, mat.NewVecDense(2, nil), r))

	// mismatched noise
	assert.Error(s.Update(hOrder, h, res, mat.NewSymDense(2, nil)))

	// mismatched Jacobian columns
	assert.Error(s.Update(hOrder, mat.NewDense(1, 3, nil), res, r))

	// inactive variable in the ordering
	assert.Error(s.Update([]msckf.Variable{types.NewVec(1)}, h, res, r))

	// empty ordering
	assert.Error(s.Update(nil, h, res, r))
}

func TestUpdateDivergence(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	hOrder := []msckf.Variable{s.CalibDt()}
	h := mat.NewDense(1, 1, []float64{1.0})
	res := mat.NewVecDense(1, []float64{0.5})

	// negative measurement noise makes the innovation covariance indefinite
	r := mat.NewSymDense(1, []float64{-1.0})

	err := s.Update(hOrder, h, res, r)
	assert.Error(err)
	assert.True(errors.Is(err, msckf.ErrDivergence))
}

func TestUpdateSyncsCameras(t *testing.T) {
	assert := assert.New(t)

	opts := Options{
		MaxClones:             3,
		CalibCameraIntrinsics: true,
		CameraIntrinsics: map[int][]float64{
			0: {450.0, 450.0, 320.0, 240.0},
		},
	}
	s := newState(t, opts)
	intrinsics := s.CamIntrinsics(0)

	hOrder := []msckf.Variable{intrinsics}
	h := identity(intrinsics.Size())
	res := mat.NewVecDense(intrinsics.Size(), []float64{1.0, -1.0, 2.0, -2.0})
	r := mat.NewSymDense(intrinsics.Size(), nil)
	for i := 0; i < intrinsics.Size(); i++ {
		r.SetSym(i, i, 1e-4)
	}

	assert.NoError(s.Update(hOrder, h, res, r))

	// the cached camera model follows the corrected calibration
	assert.True(mat.Equal(intrinsics.Value(), s.Camera(0).Value()))
	assert.False(mat.Equal(s.Camera(0).Value(), mat.NewVecDense(4, []float64{450.0, 450.0, 320.0, 240.0})))
}
