// Package imm implements Interacting Multiple Model estimator.
package imm

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/matrix"
	"github.com/milosgajdos/go-fusion/state"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tol is the tolerance of probability sums
const tol = 1e-9

// Option configures IMM
type Option func(*IMM)

// WithArithmetic sets the state arithmetic used when mixing filter states.
func WithArithmetic(a filter.Arithmetic) Option {
	return func(b *IMM) {
		b.arith = a
	}
}

// IMM is Interacting Multiple Model estimator.
// It runs a bank of filters, each modelling one mode of the system,
// and blends their estimates by the posterior mode probabilities.
type IMM struct {
	// filters is the filter bank
	filters []filter.Filter
	// mu stores mode probabilities
	mu []float64
	// m is mode transition matrix
	m *mat.Dense
	// omega stores mixing probabilities: omega[i,j] is the probability of mode i given mode j
	omega *mat.Dense
	// cbar stores the predicted mode probabilities
	cbar []float64
	// likelihood stores the last measurement likelihood of every filter
	likelihood []float64
	// arith is state arithmetic
	arith filter.Arithmetic
	// x is the combined state
	x *mat.VecDense
	// p is the combined covariance
	p *mat.SymDense
}

// New creates new IMM and returns it.
// It accepts the following parameters:
//   - filters: filter bank; all filters must share the state dimension
//   - mu:      initial mode probabilities
//   - m:       row-stochastic mode transition matrix
//
// State arithmetic defaults to plain vector arithmetic.
// It returns error if fewer than two filters are given, if the filters have different
// state dimensions or if mu and m are not valid probabilities.
func New(filters []filter.Filter, mu []float64, m *mat.Dense, opts ...Option) (*IMM, error) {
	n := len(filters)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", filter.ErrNotEnoughFilters, n)
	}

	nx := filters[0].State().Len()
	for i, f := range filters {
		if f.State().Len() != nx {
			return nil, fmt.Errorf("%w: filter %d: %d != %d", filter.ErrDifferentFilterShapes, i, f.State().Len(), nx)
		}
	}

	if len(mu) != n {
		return nil, fmt.Errorf("%w: mode probabilities: %d, filters: %d", filter.ErrInvalidArgument, len(mu), n)
	}
	if floats.Min(mu) < 0 || math.Abs(floats.Sum(mu)-1) > tol {
		return nil, fmt.Errorf("%w: mode probabilities do not sum to 1: %v", filter.ErrInvalidArgument, mu)
	}

	if m == nil {
		return nil, fmt.Errorf("%w: nil transition matrix", filter.ErrInvalidArgument)
	}
	if rows, cols := m.Dims(); rows != n || cols != n {
		return nil, fmt.Errorf("%w: transition matrix: [%d x %d], filters: %d", filter.ErrInvalidArgument, rows, cols, n)
	}
	if mat.Min(m) < 0 {
		return nil, fmt.Errorf("%w: negative transition probability", filter.ErrInvalidArgument)
	}
	for i, s := range matrix.RowSums(m) {
		if math.Abs(s-1) > tol {
			return nil, fmt.Errorf("%w: transition matrix row %d sums to %g", filter.ErrInvalidArgument, i, s)
		}
	}

	likelihood := make([]float64, n)
	for i := range likelihood {
		likelihood[i] = 1.0
	}

	b := &IMM{
		filters:    filters,
		mu:         append([]float64(nil), mu...),
		m:          mat.DenseCopyOf(m),
		omega:      mat.NewDense(n, n, nil),
		cbar:       make([]float64, n),
		likelihood: likelihood,
		arith:      state.Cartesian{},
	}

	for _, opt := range opts {
		opt(b)
	}

	b.computeMixingProbabilities()
	b.x, b.p = b.mix(b.mu, b.states())

	return b, nil
}

type estimate struct {
	x mat.Vector
	p mat.Symmetric
}

// states returns the current estimates of all filters.
func (b *IMM) states() []estimate {
	est := make([]estimate, len(b.filters))
	for i, f := range b.filters {
		est[i] = estimate{x: f.State(), p: f.Cov()}
	}

	return est
}

// restore resets all filters to the estimates est.
func (b *IMM) restore(est []estimate) {
	for i, f := range b.filters {
		if err := f.SetState(est[i].x, est[i].p); err != nil {
			filter.Logger().Error("failed to restore filter state", "filter", i, "err", err)
		}
	}
}

// computeMixingProbabilities computes cbar = mu*M and omega[i,j] = M[i,j]*mu[i]/cbar[j].
// Column j of omega falls back to mu if cbar[j] vanishes.
func (b *IMM) computeMixingProbabilities() {
	n := len(b.filters)

	cbar := mat.NewVecDense(n, nil)
	cbar.MulVec(b.m.T(), mat.NewVecDense(n, b.mu))
	b.cbar = cbar.RawVector().Data

	for j := 0; j < n; j++ {
		if b.cbar[j] < math.SmallestNonzeroFloat64 {
			filter.Logger().Warn("vanishing mode probability, mixing with mode probabilities", "mode", j, "cbar", b.cbar[j])
			b.omega.SetCol(j, b.mu)
			continue
		}
		for i := 0; i < n; i++ {
			b.omega.Set(i, j, b.m.At(i, j)*b.mu[i]/b.cbar[j])
		}
	}
}

// mix returns the weighted mixture of the estimates est.
func (b *IMM) mix(w []float64, est []estimate) (*mat.VecDense, *mat.SymDense) {
	nx := est[0].x.Len()

	xs := mat.NewDense(len(est), nx, nil)
	for i, e := range est {
		xs.SetRow(i, mat.Col(nil, 0, e.x))
	}
	x := b.arith.Mean(xs, w)

	p := mat.NewSymDense(nx, nil)
	for i, e := range est {
		d := b.arith.Residual(e.x, x)
		p.SymRankOne(p, w[i], d)

		wp := mat.NewSymDense(nx, nil)
		wp.ScaleSym(w[i], e.p)
		p.AddSym(p, wp)
	}

	return x, p
}

// Predict mixes the filter states using the mixing probabilities
// and propagates every filter dt time units forward.
// It returns error if any of the filters fails to predict,
// in which case all filters are restored to their previous state.
func (b *IMM) Predict(dt float64) error {
	est := b.states()

	for j, f := range b.filters {
		x, p := b.mix(mat.Col(nil, j, b.omega), est)
		if err := f.SetState(x, p); err != nil {
			b.restore(est)
			return fmt.Errorf("filter %d: %w", j, err)
		}
		if err := f.Predict(dt); err != nil {
			b.restore(est)
			return fmt.Errorf("filter %d: %w", j, err)
		}
	}

	b.x, b.p = b.mix(b.mu, b.states())

	return nil
}

// Update corrects every filter using the measurement z and updates the mode probabilities
// by the filters' measurement likelihoods.
// It returns error if any of the filters fails to update,
// in which case all filters are restored to their previous state.
func (b *IMM) Update(z mat.Vector) error {
	est := b.states()

	likelihood := make([]float64, len(b.filters))
	for i, f := range b.filters {
		if err := f.Update(z); err != nil {
			b.restore(est)
			return fmt.Errorf("filter %d: %w", i, err)
		}
		l, err := f.Likelihood()
		if err != nil {
			b.restore(est)
			return fmt.Errorf("filter %d: %w", i, err)
		}
		likelihood[i] = l
	}

	mu := make([]float64, len(b.filters))
	floats.MulTo(mu, b.cbar, likelihood)

	sum := floats.Sum(mu)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		filter.Logger().Warn("degenerate mode likelihoods, keeping predicted mode probabilities", "likelihood", likelihood)
		copy(mu, b.cbar)
		sum = floats.Sum(mu)
	}
	floats.Scale(1/sum, mu)

	b.likelihood = likelihood
	b.mu = mu
	b.computeMixingProbabilities()
	b.x, b.p = b.mix(b.mu, b.states())

	return nil
}

// Likelihood is not defined for the filter bank: it always returns error.
func (b *IMM) Likelihood() (float64, error) {
	return 0, fmt.Errorf("%w: likelihood of filter bank is undefined", filter.ErrInvalidArgument)
}

// LogLikelihood is not defined for the filter bank: it always returns error.
func (b *IMM) LogLikelihood() (float64, error) {
	return 0, fmt.Errorf("%w: log-likelihood of filter bank is undefined", filter.ErrInvalidArgument)
}

// State returns a copy of the combined state
func (b *IMM) State() mat.Vector {
	return mat.VecDenseCopyOf(b.x)
}

// Cov returns a copy of the combined covariance
func (b *IMM) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.p.SymmetricDim(), nil)
	cov.CopySym(b.p)

	return cov
}

// SetState resets every filter in the bank to state x and covariance cov.
// It returns error if either x or cov dimensions differ from the filter dimensions.
func (b *IMM) SetState(x mat.Vector, cov mat.Symmetric) error {
	if x.Len() != b.x.Len() || cov.SymmetricDim() != b.x.Len() {
		return fmt.Errorf("%w: state: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), cov.SymmetricDim())
	}

	est := b.states()
	for i, f := range b.filters {
		if err := f.SetState(x, cov); err != nil {
			b.restore(est)
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}

	b.x, b.p = b.mix(b.mu, b.states())

	return nil
}

// Mu returns a copy of mode probabilities
func (b *IMM) Mu() []float64 {
	return append([]float64(nil), b.mu...)
}

// Cbar returns a copy of the predicted mode probabilities
func (b *IMM) Cbar() []float64 {
	return append([]float64(nil), b.cbar...)
}

// Omega returns a copy of mixing probabilities
func (b *IMM) Omega() *mat.Dense {
	return mat.DenseCopyOf(b.omega)
}

// Likelihoods returns the last measurement likelihood of every filter
func (b *IMM) Likelihoods() []float64 {
	return append([]float64(nil), b.likelihood...)
}

// Filters returns the filter bank
func (b *IMM) Filters() []filter.Filter {
	return b.filters
}

// Mode returns the index of the most probable mode
func (b *IMM) Mode() int {
	return floats.MaxIdx(b.mu)
}
