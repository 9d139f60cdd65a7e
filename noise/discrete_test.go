package noise

import (
	"errors"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestDiscreteWhite(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		dim       int
		dt        float64
		variance  float64
		blockSize int
		exp       *mat.SymDense
	}{
		{
			dim: 2, dt: 1.0, variance: 1.0, blockSize: 1,
			exp: mat.NewSymDense(2, []float64{
				0.25, 0.5,
				0.5, 1.0,
			}),
		},
		{
			dim: 2, dt: 0.5, variance: 2.0, blockSize: 1,
			exp: mat.NewSymDense(2, []float64{
				2 * 0.25 * 0.0625, 2 * 0.5 * 0.125,
				2 * 0.5 * 0.125, 2 * 0.25,
			}),
		},
		{
			dim: 3, dt: 2.0, variance: 1.0, blockSize: 1,
			exp: mat.NewSymDense(3, []float64{
				4, 4, 2,
				4, 4, 2,
				2, 2, 1,
			}),
		},
		{
			dim: 4, dt: 1.0, variance: 1.0, blockSize: 1,
			exp: mat.NewSymDense(4, []float64{
				1.0 / 36, 1.0 / 12, 1.0 / 6, 1.0 / 6,
				1.0 / 12, 0.25, 0.5, 0.5,
				1.0 / 6, 0.5, 1, 1,
				1.0 / 6, 0.5, 1, 1,
			}),
		},
		{
			dim: 2, dt: 1.0, variance: 1.0, blockSize: 2,
			exp: mat.NewSymDense(4, []float64{
				0.25, 0.5, 0, 0,
				0.5, 1.0, 0, 0,
				0, 0, 0.25, 0.5,
				0, 0, 0.5, 1.0,
			}),
		},
	} {
		q, err := DiscreteWhite(test.dim, test.dt, test.variance, test.blockSize)
		assert.NoError(err)
		assert.True(mat.EqualApprox(test.exp, q, 1e-12), "dim %d dt %g", test.dim, test.dt)
	}
}

func TestDiscreteWhiteErrors(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		dim       int
		blockSize int
	}{
		{dim: 1, blockSize: 1},
		{dim: 5, blockSize: 1},
		{dim: 2, blockSize: 0},
	} {
		q, err := DiscreteWhite(test.dim, 1.0, 1.0, test.blockSize)
		assert.Nil(q)
		assert.True(errors.Is(err, filter.ErrInvalidArgument))
	}
}
