package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is zero mean gaussian noise with a given covariance.
// It is used to inject process noise into simulated propagation.
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is the noise mean
	mean []float64
	// cov is the noise covariance
	cov mat.Symmetric
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// It returns error if the mean does not match the covariance dimension or
// the covariance is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	if len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("mismatched mean and covariance dimensions: %d != %d", len(mean), cov.SymmetricDim())
	}

	dist, ok := newGaussianDist(cov)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	for i := range r {
		r[i] += g.mean[i]
	}

	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset reseeds Gaussian noise.
func (g *Gaussian) Reset() {
	if dist, ok := newGaussianDist(g.cov); ok {
		g.dist = dist
	}
}

func newGaussianDist(cov mat.Symmetric) (*distmv.Normal, bool) {
	seed := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	// cov is square; rows and cols are the same size
	size, _ := cov.Dims()
	return distmv.NewNormal(make([]float64, size), cov, seed)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
