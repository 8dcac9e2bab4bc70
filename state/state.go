package state

import (
	"fmt"
	"math"
	"sort"
	"sync"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/types"
	"gonum.org/v1/gonum/mat"
)

// priorSigma is the default variance placed on the diagonal of a freshly
// created state covariance.
const priorSigma = 1e-3

// MargPolicy picks the timestamp of the next disposable clone.
// It returns +Inf when no clone can be disposed of.
type MargPolicy func(s *State) float64

// Options configures the estimator state.
type Options struct {
	// MaxClones is the sliding window size: the number of pose clones
	// kept in the state before old ones are marginalized
	MaxClones int
	// MaxAruco is the number of ARuCo tag features; landmarks with
	// feature id at most 4*MaxAruco are protected from marginalization
	MaxAruco int
	// CalibCameraTimeOffset enables online camera to IMU time offset
	// calibration: new clones are coupled to the time offset variable
	CalibCameraTimeOffset bool
	// CalibCameraIntrinsics enables online camera intrinsics calibration:
	// camera models are resynchronized after every update
	CalibCameraIntrinsics bool
	// CameraIntrinsics holds the initial intrinsics value per camera id.
	// Ignored unless CalibCameraIntrinsics is enabled.
	CameraIntrinsics map[int][]float64
	// MargPolicy picks the next disposable clone timestamp.
	// Defaults to OldestCloneTime.
	MargPolicy MargPolicy
}

// State owns the active estimator variables and their joint covariance.
// The covariance offset of every active variable is its position inside the
// covariance matrix; active variables are contiguous and ordered, so the sum
// of their sizes equals the covariance dimension.
//
// All operations assume a single writer: the estimator processing path. The
// only structure safe to inspect concurrently is the clone map, guarded by
// its own mutex.
type State struct {
	// opts is the state configuration
	opts Options
	// timestamp is the current estimator time
	timestamp float64
	// cov is the joint covariance over all active variables
	cov *mat.Dense
	// variables are the active top level state variables, ordered by offset
	variables []msckf.Variable
	// imu is the primary inertial variable
	imu *types.IMU
	// calibDt is the camera to IMU time offset calibration variable
	calibDt *types.Vec
	// camIntrinsics are the camera intrinsics calibration variables
	camIntrinsics map[int]*types.Vec
	// cameras caches the camera models derived from camIntrinsics
	cameras map[int]*Camera
	// clones maps timestamps to pose clones in the sliding window
	clones map[float64]*types.Pose
	// features maps feature ids to landmark variables
	features map[int]*types.Landmark
	// margPolicy picks the next disposable clone timestamp
	margPolicy MargPolicy
	// mu guards the clone map, which reporting consumers may read
	// concurrently with the estimator
	mu sync.Mutex
}

// New creates a new estimator state and returns it.
// The initial state holds the IMU variable plus any enabled calibration
// variables, with a small diagonal prior covariance; use
// SetInitialCovariance to overwrite the prior.
// It returns error if opts.MaxClones is not positive.
func New(opts Options) (*State, error) {
	if opts.MaxClones <= 0 {
		return nil, fmt.Errorf("invalid max clone count: %d", opts.MaxClones)
	}

	margPolicy := opts.MargPolicy
	if margPolicy == nil {
		margPolicy = OldestCloneTime
	}

	s := &State{
		opts:          opts,
		imu:           types.NewIMU(),
		camIntrinsics: make(map[int]*types.Vec),
		cameras:       make(map[int]*Camera),
		clones:        make(map[float64]*types.Pose),
		features:      make(map[int]*types.Landmark),
		margPolicy:    margPolicy,
	}

	s.imu.SetLocalID(0)
	s.variables = append(s.variables, s.imu)
	size := s.imu.Size()

	if opts.CalibCameraTimeOffset {
		s.calibDt = types.NewVec(1)
		s.calibDt.SetLocalID(size)
		s.variables = append(s.variables, s.calibDt)
		size += s.calibDt.Size()
	}

	if opts.CalibCameraIntrinsics {
		camIDs := make([]int, 0, len(opts.CameraIntrinsics))
		for id := range opts.CameraIntrinsics {
			camIDs = append(camIDs, id)
		}
		sort.Ints(camIDs)

		for _, id := range camIDs {
			val := opts.CameraIntrinsics[id]
			if len(val) == 0 {
				return nil, fmt.Errorf("empty intrinsics for camera %d", id)
			}
			intrinsics := types.NewVec(len(val))
			if err := intrinsics.SetValue(mat.NewVecDense(len(val), val)); err != nil {
				return nil, err
			}
			intrinsics.SetLocalID(size)
			s.variables = append(s.variables, intrinsics)
			size += intrinsics.Size()

			s.camIntrinsics[id] = intrinsics
			s.cameras[id] = NewCamera(intrinsics.Value())
		}
	}

	s.cov = mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		s.cov.Set(i, i, priorSigma)
	}

	return s, nil
}

// Timestamp returns the current estimator time
func (s *State) Timestamp() float64 {
	return s.timestamp
}

// SetTimestamp sets the current estimator time
func (s *State) SetTimestamp(t float64) {
	s.timestamp = t
}

// Dim returns the dimension of the active covariance
func (s *State) Dim() int {
	r, _ := s.cov.Dims()
	return r
}

// IMU returns the primary inertial variable
func (s *State) IMU() *types.IMU {
	return s.imu
}

// CalibDt returns the time offset calibration variable, nil when time
// offset calibration is disabled.
func (s *State) CalibDt() *types.Vec {
	return s.calibDt
}

// CamIntrinsics returns the intrinsics calibration variable of camera id,
// nil when the camera is not calibrated online.
func (s *State) CamIntrinsics(id int) *types.Vec {
	return s.camIntrinsics[id]
}

// Camera returns the cached camera model of camera id, nil when the camera
// is not calibrated online.
func (s *State) Camera(id int) *Camera {
	return s.cameras[id]
}

// Variables returns a copy of the active variable list in covariance order
func (s *State) Variables() []msckf.Variable {
	vars := make([]msckf.Variable, len(s.variables))
	copy(vars, s.variables)

	return vars
}

// ClonePoses returns a snapshot of the sliding window clone map
func (s *State) ClonePoses() map[float64]*types.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()

	clones := make(map[float64]*types.Pose, len(s.clones))
	for ts, pose := range s.clones {
		clones[ts] = pose
	}

	return clones
}

// CloneAt returns the pose clone at timestamp ts
func (s *State) CloneAt(ts float64) (*types.Pose, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pose, ok := s.clones[ts]
	return pose, ok
}

// NumClones returns the number of pose clones in the sliding window
func (s *State) NumClones() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clones)
}

// Feature returns the landmark with the given feature id
func (s *State) Feature(id int) (*types.Landmark, bool) {
	lm, ok := s.features[id]
	return lm, ok
}

// NumFeatures returns the number of landmarks held in the state
func (s *State) NumFeatures() int {
	return len(s.features)
}

// RegisterFeature records an initialized landmark in the feature map so the
// marginalization sweep can find it.
// It returns error if the landmark is not active or its feature id is taken.
func (s *State) RegisterFeature(lm *types.Landmark) error {
	if lm.ID() < 0 {
		return fmt.Errorf("landmark %d is not an active state variable", lm.FeatureID())
	}
	if _, ok := s.features[lm.FeatureID()]; ok {
		return fmt.Errorf("landmark %d is already registered", lm.FeatureID())
	}
	s.features[lm.FeatureID()] = lm

	return nil
}

// OldestCloneTime is the default marginalization policy: it returns the
// smallest clone timestamp, +Inf when the window is empty.
func OldestCloneTime(s *State) float64 {
	oldest := math.Inf(1)
	for ts := range s.clones {
		if ts < oldest {
			oldest = ts
		}
	}

	return oldest
}

// syncCameras pushes the current intrinsics calibration values into the
// cached camera models.
func (s *State) syncCameras() {
	for id, intrinsics := range s.camIntrinsics {
		s.cameras[id].SetValue(intrinsics.Value())
	}
}

// has reports whether v is one of the active top level state variables.
func (s *State) has(v msckf.Variable) bool {
	for _, av := range s.variables {
		if av == v {
			return true
		}
	}

	return false
}

// contiguousSize checks that order is non-empty, active and contiguous in
// covariance offsets and returns its total size.
func contiguousSize(order []msckf.Variable) (int, error) {
	if len(order) == 0 {
		return 0, fmt.Errorf("empty variable ordering")
	}

	size := order[0].Size()
	for i := 0; i < len(order)-1; i++ {
		if order[i].ID() < 0 {
			return 0, fmt.Errorf("inactive variable in ordering")
		}
		if order[i].ID()+order[i].Size() != order[i+1].ID() {
			return 0, fmt.Errorf("non-contiguous variable ordering")
		}
		size += order[i+1].Size()
	}
	if order[len(order)-1].ID() < 0 {
		return 0, fmt.Errorf("inactive variable in ordering")
	}

	return size, nil
}

// measOffsets returns the column offset of every variable of order inside a
// measurement Jacobian, together with the total column count.
// It returns error if order is empty or contains inactive variables.
func measOffsets(order []msckf.Variable) ([]int, int, error) {
	if len(order) == 0 {
		return nil, 0, fmt.Errorf("empty variable ordering")
	}

	offsets := make([]int, len(order))
	size := 0
	for i, v := range order {
		if v.ID() < 0 {
			return nil, 0, fmt.Errorf("inactive variable in ordering")
		}
		offsets[i] = size
		size += v.Size()
	}

	return offsets, size, nil
}
