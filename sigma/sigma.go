// Package sigma generates sigma points and their weights for unscented filters.
package sigma

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/state"
	"gonum.org/v1/gonum/mat"
)

// Points generates sigma points of a Gaussian distribution.
type Points interface {
	// Dim returns the dimension of the state the points are generated for
	Dim() int
	// Num returns the number of sigma points
	Num() int
	// SigmaPoints returns sigma points of N(x, p), one point per row
	SigmaPoints(x mat.Vector, p mat.Symmetric) (*mat.Dense, error)
	// Wm returns mean weights
	Wm() []float64
	// Wc returns covariance weights
	Wc() []float64
}

// base holds the parts shared by all symmetric sigma point sets.
type base struct {
	n     int
	scale float64
	wm    []float64
	wc    []float64
	arith filter.Arithmetic
}

func newBase(n int, scale float64, arith filter.Arithmetic) *base {
	if arith == nil {
		arith = state.Cartesian{}
	}

	return &base{
		n:     n,
		scale: scale,
		arith: arith,
	}
}

// Dim returns state dimension.
func (b *base) Dim() int {
	return b.n
}

// Num returns the number of sigma points: 2n+1.
func (b *base) Num() int {
	return 2*b.n + 1
}

// Wm returns a copy of mean weights.
func (b *base) Wm() []float64 {
	wm := make([]float64, len(b.wm))
	copy(wm, b.wm)

	return wm
}

// Wc returns a copy of covariance weights.
func (b *base) Wc() []float64 {
	wc := make([]float64, len(b.wc))
	copy(wc, b.wc)

	return wc
}

// SigmaPoints returns 2n+1 sigma points stored in matrix rows.
// The first point is x, the next n points are x shifted by the rows of the
// upper Cholesky factor of scale*p, and the last n points are x shifted the opposite way.
// It returns error if scale*p is not positive definite.
// It panics if x or p dimensions differ from the dimension of the points.
func (b *base) SigmaPoints(x mat.Vector, p mat.Symmetric) (*mat.Dense, error) {
	if x.Len() != b.n || p.SymmetricDim() != b.n {
		panic(mat.ErrShape)
	}

	sp := mat.NewSymDense(b.n, nil)
	sp.ScaleSym(b.scale, p)

	var chol mat.Cholesky
	if ok := chol.Factorize(sp); !ok {
		return nil, fmt.Errorf("%w: sigma point covariance is not positive definite", filter.ErrDecomposition)
	}

	u := mat.NewTriDense(b.n, mat.Upper, nil)
	chol.UTo(u)
	ud := mat.DenseCopyOf(u)

	sigmas := mat.NewDense(2*b.n+1, b.n, nil)
	sigmas.SetRow(0, vecData(x))

	neg := mat.NewVecDense(b.n, nil)
	for k := 0; k < b.n; k++ {
		row := ud.RowView(k)
		sigmas.SetRow(k+1, b.arith.Add(x, row).RawVector().Data)
		neg.ScaleVec(-1, row)
		sigmas.SetRow(b.n+k+1, b.arith.Add(x, neg).RawVector().Data)
	}

	return sigmas, nil
}

// MerweScaled generates sigma points and weights using Van der Merwe's
// scaled sigma point algorithm.
type MerweScaled struct {
	*base
	// Alpha determines the spread of the sigma points around the mean
	Alpha float64
	// Beta incorporates prior knowledge of the distribution; 2 is optimal for Gaussian
	Beta float64
	// Kappa is the secondary scaling parameter
	Kappa float64
}

// NewMerweScaled creates new MerweScaled sigma points for n-dimensional state and returns it.
// If arith is nil, plain vector arithmetic is used to offset the points.
// It returns error if n is not positive or if n+lambda is zero.
func NewMerweScaled(n int, alpha, beta, kappa float64, arith filter.Arithmetic) (*MerweScaled, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid state dimension: %d", filter.ErrInvalidArgument, n)
	}

	lambda := alpha*alpha*(float64(n)+kappa) - float64(n)
	c := float64(n) + lambda
	if c == 0 {
		return nil, fmt.Errorf("%w: n+lambda must be non-zero", filter.ErrInvalidArgument)
	}

	b := newBase(n, c, arith)
	b.wm = make([]float64, 2*n+1)
	b.wc = make([]float64, 2*n+1)

	w := 0.5 / c
	for i := range b.wm {
		b.wm[i] = w
		b.wc[i] = w
	}
	b.wm[0] = lambda / c
	b.wc[0] = lambda/c + (1 - alpha*alpha + beta)

	return &MerweScaled{
		base:  b,
		Alpha: alpha,
		Beta:  beta,
		Kappa: kappa,
	}, nil
}

// String implements the Stringer interface.
func (m *MerweScaled) String() string {
	return fmt.Sprintf("MerweScaled{n=%d alpha=%g beta=%g kappa=%g}", m.n, m.Alpha, m.Beta, m.Kappa)
}

// Julier generates sigma points and weights using Simon Julier's original algorithm.
type Julier struct {
	*base
	// Kappa is the scaling parameter
	Kappa float64
}

// NewJulier creates new Julier sigma points for n-dimensional state and returns it.
// If arith is nil, plain vector arithmetic is used to offset the points.
// It returns error if n is not positive or if n+kappa is zero.
func NewJulier(n int, kappa float64, arith filter.Arithmetic) (*Julier, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid state dimension: %d", filter.ErrInvalidArgument, n)
	}

	c := float64(n) + kappa
	if c == 0 {
		return nil, fmt.Errorf("%w: n+kappa must be non-zero", filter.ErrInvalidArgument)
	}

	b := newBase(n, c, arith)
	b.wm = make([]float64, 2*n+1)

	w := 0.5 / c
	for i := range b.wm {
		b.wm[i] = w
	}
	b.wm[0] = kappa / c
	b.wc = make([]float64, len(b.wm))
	copy(b.wc, b.wm)

	return &Julier{
		base:  b,
		Kappa: kappa,
	}, nil
}

// String implements the Stringer interface.
func (j *Julier) String() string {
	return fmt.Sprintf("Julier{n=%d kappa=%g}", j.n, j.Kappa)
}

func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}

	return data
}
