package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSymmetrize(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(3, 3, []float64{
		1.0, 2.0, 3.0,
		9.0, 4.0, 5.0,
		9.0, 9.0, 6.0,
	})
	Symmetrize(m)

	assert.Equal(m.At(1, 0), m.At(0, 1))
	assert.Equal(m.At(2, 0), m.At(0, 2))
	assert.Equal(m.At(2, 1), m.At(1, 2))
	assert.True(mat.Equal(m.T(), m))

	assert.Panics(func() { Symmetrize(mat.NewDense(2, 3, nil)) })
}

func TestDiag(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{1.0, 2.0, 3.0, 4.0})
	assert.Equal([]float64{1.0, 4.0}, Diag(m))

	rect := mat.NewDense(3, 2, []float64{1.0, 2.0, 3.0, 4.0, 5.0, 6.0})
	assert.Equal([]float64{1.0, 4.0}, Diag(rect))
}

func TestMinDiag(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, 2.0)
	m.Set(1, 1, -1.5)
	m.Set(2, 2, 0.5)

	assert.Equal(-1.5, MinDiag(m))
}
