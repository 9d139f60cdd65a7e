package estimate

import (
	"errors"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBase(val)
	assert.NotNil(b)
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewSymDense(2, nil), b.Cov()))

	b, err = NewBase(nil)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(0, b.Val().Len())
	assert.Equal(0, b.Cov().SymmetricDim())
	assert.Equal("Base{\nVal=[]\nCov=[]\n}", b.String())

	empty, err := NewBaseWithCov(&mat.VecDense{}, &mat.SymDense{})
	assert.NoError(err)
	assert.Equal(0, empty.Cov().SymmetricDim())

	b, err = NewBaseWithCov(val, cov)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(val, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrWrongVecLen))
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	b, err := NewBaseWithCov(val, cov)
	assert.NotNil(b)
	assert.NoError(err)

	assert.True(mat.Equal(val, b.Val()))
	assert.True(mat.Equal(cov, b.Cov()))

	// the estimate owns its data
	val.SetVec(0, 10.0)
	cov.SetSym(0, 0, 10.0)
	assert.Equal(1.0, b.Val().AtVec(0))
	assert.Equal(1.0, b.Cov().At(0, 0))
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	str := `Base{
Val=[1  2]
Cov=⎡1  0⎤
    ⎣0  1⎦
}`
	b, err := NewBaseWithCov(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.NoError(err)
	assert.Equal(str, b.String())
}
