package state

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	filter "github.com/milosgajdos/go-fusion"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func newPendulumLayout(t *testing.T) *Layout {
	l, err := NewLayout(
		Field{Name: "theta", Kind: Angle},
		Field{Name: "omega", Kind: Linear},
		Field{Name: "radius", Kind: Linear},
	)
	assert.NoError(t, err)

	return l
}

func TestNewLayout(t *testing.T) {
	assert := assert.New(t)

	l := newPendulumLayout(t)
	assert.Equal(3, l.Dim())
	assert.Equal([]string{"theta", "omega", "radius"}, l.Names())

	for _, test := range []struct {
		fields []Field
	}{
		{fields: nil},
		{fields: []Field{{Name: ""}}},
		{fields: []Field{{Name: "a"}, {Name: "a", Kind: Angle}}},
		{fields: []Field{{Name: "a", Kind: Kind(7)}}},
	} {
		l, err := NewLayout(test.fields...)
		assert.Nil(l)
		assert.True(errors.Is(err, filter.ErrInvalidArgument))
	}
}

func TestLayoutIndex(t *testing.T) {
	assert := assert.New(t)

	l := newPendulumLayout(t)

	i, err := l.Index("radius")
	assert.NoError(err)
	assert.Equal(2, i)

	_, err = l.Index("mass")
	assert.Error(err)
	assert.Panics(func() { l.MustIndex("mass") })

	x := mat.NewVecDense(3, []float64{0.1, 0.2, 0.3})
	v, err := l.Get(x, "omega")
	assert.NoError(err)
	assert.Equal(0.2, v)

	assert.NoError(l.Set(x, "radius", 1.5))
	assert.Equal(1.5, x.AtVec(l.MustIndex("radius")))
	assert.Error(l.Set(x, "mass", 1.0))
}

func TestNormalizeAngle(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		in  float64
		out float64
	}{
		{in: 0, out: 0},
		{in: math.Pi / 2, out: math.Pi / 2},
		{in: 3 * math.Pi / 2, out: -math.Pi / 2},
		{in: -3 * math.Pi / 2, out: math.Pi / 2},
		{in: 5 * math.Pi, out: -math.Pi},
		{in: math.Pi, out: -math.Pi},
	} {
		assert.InDelta(test.out, NormalizeAngle(test.in), 1e-12)
	}
}

func TestLayoutResidualAdd(t *testing.T) {
	assert := assert.New(t)

	l := newPendulumLayout(t)
	a := mat.NewVecDense(3, []float64{math.Pi - 0.1, 1.0, 2.0})
	b := mat.NewVecDense(3, []float64{-math.Pi + 0.1, 0.5, 1.0})

	r := l.Residual(a, b)
	opt := cmpopts.EquateApprox(0, 1e-12)
	if diff := cmp.Diff([]float64{-0.2, 0.5, 1.0}, r.RawVector().Data, opt); diff != "" {
		t.Errorf("unexpected residual (-want +got):\n%s", diff)
	}

	s := l.Add(a, mat.NewVecDense(3, []float64{0.2, 0.5, 1.0}))
	if diff := cmp.Diff([]float64{-math.Pi + 0.1, 1.5, 3.0}, s.RawVector().Data, opt); diff != "" {
		t.Errorf("unexpected sum (-want +got):\n%s", diff)
	}

	assert.Panics(func() { l.Residual(mat.NewVecDense(2, nil), b) })
	assert.Panics(func() { l.Add(a, mat.NewVecDense(4, nil)) })
}

func TestLayoutMean(t *testing.T) {
	assert := assert.New(t)

	l := newPendulumLayout(t)
	sigmas := mat.NewDense(2, 3, []float64{
		math.Pi - 0.1, 1.0, 2.0,
		-math.Pi + 0.1, 3.0, 4.0,
	})
	w := []float64{0.5, 0.5}

	m := l.Mean(sigmas, w)
	assert.InDelta(math.Pi, math.Abs(m.AtVec(0)), 1e-12)
	assert.InDelta(2.0, m.AtVec(1), 1e-12)
	assert.InDelta(3.0, m.AtVec(2), 1e-12)

	assert.Panics(func() { l.Mean(sigmas, []float64{1.0}) })
}

func TestCartesian(t *testing.T) {
	assert := assert.New(t)

	var c Cartesian
	a := mat.NewVecDense(2, []float64{1.0, 2.0})
	b := mat.NewVecDense(2, []float64{0.5, 4.0})

	assert.True(mat.Equal(mat.NewVecDense(2, []float64{0.5, -2.0}), c.Residual(a, b)))
	assert.True(mat.Equal(mat.NewVecDense(2, []float64{1.5, 6.0}), c.Add(a, b)))

	sigmas := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	m := c.Mean(sigmas, []float64{0.5, 0.25, 0.25})
	assert.True(mat.EqualApprox(mat.NewVecDense(2, []float64{2.5, 3.5}), m, 1e-12))

	assert.Panics(func() { c.Mean(sigmas, []float64{1.0}) })
}
