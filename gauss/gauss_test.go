package gauss

import (
	"errors"
	"math"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

func TestLogPDFScalar(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(1, []float64{1.0})
	mean := mat.NewVecDense(1, []float64{1.0})
	cov := mat.NewSymDense(1, []float64{0.01})

	l, err := LogPDF(x, mean, cov, true)
	assert.NoError(err)
	assert.InDelta(1.3836465597893728, l, 1e-12)

	p, err := PDF(x, mean, cov, true)
	assert.NoError(err)
	assert.InDelta(3.989422804014326, p, 1e-12)
}

func TestLogPDFMatchesDistmv(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		x    []float64
		mean []float64
		cov  *mat.SymDense
	}{
		{
			x:    []float64{0.5, -0.2},
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		},
		{
			x:    []float64{1.0, 2.0, 3.0},
			mean: []float64{0.5, 2.5, 2.0},
			cov:  mat.NewSymDense(3, []float64{2, 0.3, 0.1, 0.3, 1, 0.2, 0.1, 0.2, 0.5}),
		},
	} {
		n, ok := distmv.NewNormal(test.mean, test.cov, nil)
		require.True(t, ok)

		l, err := LogPDF(mat.NewVecDense(len(test.x), test.x), mat.NewVecDense(len(test.mean), test.mean), test.cov, false)
		assert.NoError(err)
		assert.InDelta(n.LogProb(test.x), l, 1e-9)
	}
}

func TestLogPDFSingular(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(2, []float64{1.0, 1.0})
	mean := mat.NewVecDense(2, nil)
	cov := mat.NewSymDense(2, []float64{1, 1, 1, 1})

	_, err := LogPDF(x, mean, cov, false)
	assert.True(errors.Is(err, filter.ErrSingularMatrix))

	l, err := LogPDF(x, mean, cov, true)
	assert.NoError(err)
	// rank 1: eigenvalue 2 along [1,1]/sqrt(2); x projects to sqrt(2)
	exp := -0.5 * (math.Log(2*math.Pi) + math.Log(2) + 1)
	assert.InDelta(exp, l, 1e-9)
}

func TestLogPDFErrors(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	x := mat.NewVecDense(2, nil)

	_, err := LogPDF(x, x, cov, true)
	assert.True(errors.Is(err, filter.ErrNotPositiveSemiDefinite))

	_, err = LogPDF(mat.NewVecDense(3, nil), x, mat.NewSymDense(2, []float64{1, 0, 0, 1}), true)
	assert.True(errors.Is(err, filter.ErrWrongVecLen))

	_, err = LogPDF(x, x, mat.NewDense(2, 3, nil), true)
	assert.True(errors.Is(err, filter.ErrNotSquare))

	_, err = NewPSD(mat.NewDense(3, 2, nil), true)
	assert.True(errors.Is(err, filter.ErrNotSquare))
}

func TestPSDPinv(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewDense(2, 2, []float64{4, 0, 0, 0.25})
	psd, err := NewPSD(cov, false)
	assert.NoError(err)
	assert.Equal(2, psd.Rank)
	assert.InDelta(0.0, psd.LogPdet, 1e-12)

	exp := mat.NewSymDense(2, []float64{0.25, 0, 0, 4})
	assert.True(mat.EqualApprox(exp, psd.Pinv(), 1e-12))

	dev := mat.NewVecDense(2, []float64{2, 0.5})
	assert.InDelta(2.0, psd.Mahalanobis(dev), 1e-12)
}
