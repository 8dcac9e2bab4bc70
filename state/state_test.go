package state

import (
	"math"
	"os"
	"testing"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	defaultOpts Options
	omega       *mat.VecDense
)

func setup() {
	defaultOpts = Options{
		MaxClones:             3,
		MaxAruco:              1,
		CalibCameraTimeOffset: true,
	}
	omega = mat.NewVecDense(3, []float64{0.1, -0.2, 0.3})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

// newState creates a test state with the given options.
func newState(t *testing.T, opts Options) *State {
	s, err := New(opts)
	require.NoError(t, err)
	require.NotNil(t, s)

	return s
}

// initLandmark seeds lm into s through an invertible identity measurement
// against the time offset variable.
func initLandmark(t *testing.T, s *State, lm *types.Landmark) {
	hOrder := []msckf.Variable{s.CalibDt()}
	hR := mat.NewDense(lm.Size(), 1, nil)
	hL := mat.NewDense(lm.Size(), lm.Size(), nil)
	for i := 0; i < lm.Size(); i++ {
		hL.Set(i, i, 1.0)
	}
	r := mat.NewSymDense(lm.Size(), nil)
	for i := 0; i < lm.Size(); i++ {
		r.SetSym(i, i, 1e-2)
	}
	res := mat.NewVecDense(lm.Size(), nil)

	require.NoError(t, s.InitializeInvertible(lm, hOrder, hR, hL, r, res))
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	s, err := New(defaultOpts)
	assert.NoError(err)
	assert.NotNil(s)
	// IMU plus time offset
	assert.Equal(16, s.Dim())
	assert.NotNil(s.CalibDt())
	assert.Equal(15, s.CalibDt().ID())
	assert.Len(s.Variables(), 2)

	// invalid clone count
	s, err = New(Options{MaxClones: 0})
	assert.Nil(s)
	assert.Error(err)

	// no calibration variables
	s, err = New(Options{MaxClones: 3})
	assert.NoError(err)
	assert.Equal(15, s.Dim())
	assert.Nil(s.CalibDt())
}

func TestNewWithIntrinsics(t *testing.T) {
	assert := assert.New(t)

	opts := Options{
		MaxClones:             3,
		CalibCameraIntrinsics: true,
		CameraIntrinsics: map[int][]float64{
			0: {450.0, 450.0, 320.0, 240.0},
		},
	}
	s, err := New(opts)
	assert.NoError(err)
	assert.Equal(19, s.Dim())

	intrinsics := s.CamIntrinsics(0)
	assert.NotNil(intrinsics)
	assert.Equal(15, intrinsics.ID())

	cam := s.Camera(0)
	assert.NotNil(cam)
	assert.True(mat.Equal(intrinsics.Value(), cam.Value()))

	// empty intrinsics
	opts.CameraIntrinsics = map[int][]float64{0: {}}
	s, err = New(opts)
	assert.Nil(s)
	assert.Error(err)
}

func TestTimestamp(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	assert.Equal(0.0, s.Timestamp())

	s.SetTimestamp(1.5)
	assert.Equal(1.5, s.Timestamp())
}

func TestRegisterFeature(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)

	// inactive landmark can not be registered
	lm := types.NewLandmark(10)
	assert.Error(s.RegisterFeature(lm))

	initLandmark(t, s, lm)
	assert.NoError(s.RegisterFeature(lm))
	assert.Equal(1, s.NumFeatures())

	got, ok := s.Feature(10)
	assert.True(ok)
	assert.Equal(lm, got)

	// duplicate feature id
	other := types.NewLandmark(10)
	initLandmark(t, s, other)
	assert.Error(s.RegisterFeature(other))
}

func TestOldestCloneTime(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	assert.True(math.IsInf(OldestCloneTime(s), 1))

	for _, ts := range []float64{3.0, 1.0, 2.0} {
		s.SetTimestamp(ts)
		_, err := s.AugmentClone(omega)
		assert.NoError(err)
	}
	assert.Equal(1.0, OldestCloneTime(s))
}

func TestVariablesCopy(t *testing.T) {
	assert := assert.New(t)

	s := newState(t, defaultOpts)
	vars := s.Variables()
	vars[0] = nil

	// mutating the returned slice must not affect the state
	assert.NotNil(s.Variables()[0])
}
