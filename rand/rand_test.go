package rand

import (
	"errors"
	"math"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.0, 0.0, 0.0, 1.0}
	covTest := mat.NewSymDense(2, data)
	covR, _ := covTest.Dims()

	// n must be bigger than 1
	nTest := -3
	res, err := WithCovN(covTest, nTest, nil)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))
	assert.Nil(res)

	nTest = 1
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)

	// 2 samples
	nTest = 2
	res, err = WithCovN(covTest, nTest, rand.NewSource(1))
	assert.NoError(err)
	assert.NotNil(res)
	r, c := res.Dims()
	assert.Equal(r, covR)
	assert.Equal(c, nTest)
}

func TestWithCovNSingular(t *testing.T) {
	assert := assert.New(t)

	// all the mass lies on the x == y line
	cov := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	n := 5000

	res, err := WithCovN(cov, n, rand.NewSource(42))
	assert.NoError(err)

	for j := 0; j < n; j++ {
		assert.InDelta(res.At(0, j), res.At(1, j), 1e-6)
	}

	x := mat.Row(nil, 0, res)
	assert.InDelta(1.0, stat.Variance(x, nil), 0.1)
}

func TestCovFactor(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{4, 1, 1, 2})
	u, err := CovFactor(cov)
	assert.NoError(err)

	uut := &mat.Dense{}
	uut.Mul(u, u.T())
	assert.True(mat.EqualApprox(cov, uut, 1e-9))

	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		bad := mat.NewSymDense(2, []float64{1, v, v, 1})
		u, err = CovFactor(bad)
		assert.Nil(u)
		assert.True(errors.Is(err, filter.ErrInvalidArgument))

		res, err := WithCovN(bad, 1, nil)
		assert.Nil(res)
		assert.True(errors.Is(err, filter.ErrInvalidArgument))
	}
}

func TestWithFactorN(t *testing.T) {
	assert := assert.New(t)

	u := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	res, err := WithFactorN(u, 10, rand.NewSource(1))
	assert.NoError(err)
	for j := 0; j < 10; j++ {
		assert.Equal(0.0, res.At(1, j))
	}

	res, err = WithFactorN(u, 0, nil)
	assert.Nil(res)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	res, err = WithFactorN(mat.NewDense(2, 3, nil), 1, nil)
	assert.Nil(res)
	assert.True(errors.Is(err, filter.ErrNotSquare))
}

func TestRouletteDrawN(t *testing.T) {
	assert := assert.New(t)

	// p can't be nil or empty
	indices, err := RouletteDrawN(nil, 10, nil)
	assert.Error(err)
	assert.Nil(indices)

	indices, err = RouletteDrawN([]float64{0, 0}, 10, nil)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))
	assert.Nil(indices)

	p := []float64{0.1, 0.7, 0.3, 0.4}
	n := 10
	indices, err = RouletteDrawN(p, n, rand.NewSource(7))
	assert.NoError(err)
	assert.NotNil(indices)
	assert.Equal(n, len(indices))
	for _, i := range indices {
		assert.True(i >= 0 && i < len(p))
	}

	// zero weight entries are never drawn
	indices, err = RouletteDrawN([]float64{0, 1, 0}, 100, rand.NewSource(7))
	assert.NoError(err)
	for _, i := range indices {
		assert.Equal(1, i)
	}
}
