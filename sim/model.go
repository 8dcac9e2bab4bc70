package sim

import (
	"fmt"

	msckf "github.com/milosgajdos/go-msckf"
	"github.com/milosgajdos/go-msckf/noise"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// imuDim is the IMU error state dimension the model propagates.
const imuDim = 15

// driveDim is the dimension of the white noise driving the model: gyroscope
// and accelerometer noise plus the two bias random walks.
const driveDim = 12

// InertialModel builds the discrete error state transition and process
// noise of the IMU block over a fixed propagation interval. The transition
// is a constant velocity model: identity plus position-velocity coupling.
// It stands in for a full inertial integrator when exercising the filter.
type InertialModel struct {
	// Dt is the propagation interval
	Dt float64
	// SigmaW is the gyroscope noise density
	SigmaW float64
	// SigmaA is the accelerometer noise density
	SigmaA float64
	// SigmaWb is the gyroscope bias random walk density
	SigmaWb float64
	// SigmaAb is the accelerometer bias random walk density
	SigmaAb float64
	// q samples the driving noise of the model
	q msckf.Noise
}

// NewInertialModel creates a new inertial propagation model.
// It returns error if dt is not positive or any noise density is negative.
func NewInertialModel(dt, sigmaW, sigmaA, sigmaWb, sigmaAb float64) (*InertialModel, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid propagation interval: %v", dt)
	}
	for _, sigma := range []float64{sigmaW, sigmaA, sigmaWb, sigmaAb} {
		if sigma < 0 {
			return nil, fmt.Errorf("invalid noise density: %v", sigma)
		}
	}

	m := &InertialModel{
		Dt:      dt,
		SigmaW:  sigmaW,
		SigmaA:  sigmaA,
		SigmaWb: sigmaWb,
		SigmaAb: sigmaAb,
	}

	q, err := m.driveNoise()
	if err != nil {
		return nil, err
	}
	m.q = q

	return m, nil
}

// driveNoise builds the driving noise sampler: Gaussian with the per block
// variances when every density is positive, Zero otherwise since a singular
// covariance cannot be sampled.
func (m *InertialModel) driveNoise() (msckf.Noise, error) {
	if m.SigmaW == 0 || m.SigmaA == 0 || m.SigmaWb == 0 || m.SigmaAb == 0 {
		return noise.NewZero(driveDim)
	}

	cov := mat.NewSymDense(driveDim, nil)
	for i := 0; i < 3; i++ {
		cov.SetSym(i, i, m.SigmaW*m.SigmaW*m.Dt)
		cov.SetSym(3+i, 3+i, m.SigmaA*m.SigmaA*m.Dt)
		cov.SetSym(6+i, 6+i, m.SigmaWb*m.SigmaWb*m.Dt)
		cov.SetSym(9+i, 9+i, m.SigmaAb*m.SigmaAb*m.Dt)
	}

	return noise.NewGaussian(make([]float64, driveDim), cov)
}

// ProcessNoise returns the driving noise source of the model.
func (m *InertialModel) ProcessNoise() msckf.Noise {
	return m.q
}

// SampleNoise draws one driving noise sample laid out in the error state:
// the sample enters the orientation, velocity and bias blocks, the position
// block receives its noise through the transition coupling.
func (m *InertialModel) SampleNoise() mat.Vector {
	w := m.q.Sample()

	dx := mat.NewVecDense(imuDim, nil)
	for i := 0; i < 3; i++ {
		dx.SetVec(i, w.AtVec(i))
		dx.SetVec(6+i, w.AtVec(3+i))
		dx.SetVec(9+i, w.AtVec(6+i))
		dx.SetVec(12+i, w.AtVec(9+i))
	}

	return dx
}

// Phi returns the 15x15 error state transition over the model interval:
// identity with the position rows coupled to the velocity block.
func (m *InertialModel) Phi() *mat.Dense {
	phi, _ := matrix.NewDenseValIdentity(imuDim, 1.0)
	for i := 0; i < 3; i++ {
		phi.Set(3+i, 6+i, m.Dt)
	}

	return phi
}

// Q returns the 15x15 discrete process noise over the model interval:
// gyroscope noise drives the orientation block, accelerometer noise the
// velocity block and the bias blocks follow their random walk densities.
// The position block receives its noise through the transition coupling.
func (m *InertialModel) Q() *mat.SymDense {
	q := mat.NewSymDense(imuDim, nil)
	for i := 0; i < 3; i++ {
		q.SetSym(i, i, m.SigmaW*m.SigmaW*m.Dt)
		q.SetSym(6+i, 6+i, m.SigmaA*m.SigmaA*m.Dt)
		q.SetSym(9+i, 9+i, m.SigmaWb*m.SigmaWb*m.Dt)
		q.SetSym(12+i, 12+i, m.SigmaAb*m.SigmaAb*m.Dt)
	}

	return q
}
