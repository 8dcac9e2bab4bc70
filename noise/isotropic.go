package noise

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Isotropic is zero mean noise with covariance sigma2*I: diagonal with
// identical entries. Measurement noise of this form is required by the
// nullspace projected landmark initialization, which assumes rotation
// invariant noise.
type Isotropic struct {
	// sigma2 is the per element noise variance
	sigma2 float64
	// dist samples each element of the noise
	dist distuv.Normal
	// mean stores zero mean values
	mean []float64
}

// NewIsotropic creates new isotropic noise of the given dimension with per
// element variance sigma2.
// It returns error if sigma2 is negative or size is not positive.
func NewIsotropic(sigma2 float64, size int) (*Isotropic, error) {
	if sigma2 < 0 {
		return nil, fmt.Errorf("invalid noise variance: %v", sigma2)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", size)
	}

	return &Isotropic{
		sigma2: sigma2,
		dist:   newIsotropicDist(sigma2),
		mean:   make([]float64, size),
	}, nil
}

// Sigma2 returns the per element noise variance.
func (n *Isotropic) Sigma2() float64 {
	return n.sigma2
}

// Sample generates a sample of the noise and returns it.
func (n *Isotropic) Sample() mat.Vector {
	sample := make([]float64, len(n.mean))
	for i := range sample {
		sample[i] = n.dist.Rand()
	}

	return mat.NewVecDense(len(sample), sample)
}

// Cov returns the covariance matrix of the noise: sigma2*I.
func (n *Isotropic) Cov() mat.Symmetric {
	cov := mat.NewSymDense(len(n.mean), nil)
	for i := range n.mean {
		cov.SetSym(i, i, n.sigma2)
	}

	return cov
}

// Mean returns Isotropic mean.
func (n *Isotropic) Mean() []float64 {
	mean := make([]float64, len(n.mean))
	copy(mean, n.mean)

	return mean
}

// Reset reseeds Isotropic noise.
func (n *Isotropic) Reset() {
	n.dist = newIsotropicDist(n.sigma2)
}

func newIsotropicDist(sigma2 float64) distuv.Normal {
	return distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(sigma2),
		Src:   rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// String implements the Stringer interface.
func (n *Isotropic) String() string {
	return fmt.Sprintf("Isotropic{\nSigma2=%v\nDim=%d\n}", n.sigma2, len(n.mean))
}
