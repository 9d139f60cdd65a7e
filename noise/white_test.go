package noise

import (
	"errors"
	"math"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewWhite(t *testing.T) {
	assert := assert.New(t)

	// singular covariances are fine
	cov := mat.NewSymDense(2, []float64{0.25, 0.5, 0.5, 1})
	w, err := NewWhite(cov)
	assert.NotNil(w)
	assert.NoError(err)
	assert.True(mat.Equal(cov, w.Cov()))
	assert.EqualValues([]float64{0, 0}, w.Mean())

	w, err = NewWhite(&mat.SymDense{})
	assert.Nil(w)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	// covariance which can not be factorized is rejected up front
	w, err = NewWhite(mat.NewSymDense(2, []float64{1, math.NaN(), math.NaN(), 1}))
	assert.Nil(w)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))
}

func TestWhiteSample(t *testing.T) {
	assert := assert.New(t)

	w, err := NewDiscreteWhite(2, 1.0, 1.0, 1)
	assert.NoError(err)

	for i := 0; i < 10; i++ {
		s := w.Sample()
		assert.Equal(2, s.Len())
		// rank one covariance: position noise is half the velocity noise
		assert.InDelta(0.5*s.AtVec(1), s.AtVec(0), 1e-6)
	}

	w.Reset()
	assert.Equal(2, w.Sample().Len())

	_, err = NewDiscreteWhite(5, 1.0, 1.0, 1)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))
}
