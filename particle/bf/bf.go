package bf

import (
	"fmt"
	"math"
	"time"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/noise"
	"github.com/milosgajdos/go-fusion/rand"
	mx "github.com/milosgajdos/matrix"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// BF is a Bootstrap Filter a.k.a. SIR Particle Filter.
// For more information about Bootstrap Filter see:
// https://en.wikipedia.org/wiki/Particle_filter#The_bootstrap_filter
type BF struct {
	// m is bootstrap filter model
	m filter.Model
	// w stores particle weights
	w []float64
	// x stores filter particles as column vectors
	x *mat.Dense
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// errPDF is PDF (Probability Density Function) of filter output error
	errPDF distmv.LogProber
	// ll is the log-likelihood of the last measurement
	ll float64
	// updated is set once a measurement has been processed
	updated bool
	// src is the source of randomness
	src xrand.Source
}

// New creates new Particle Filter (PF) with the following parameters and returns it:
//   - m:     system model
//   - ic:    initial condition of the filter
//   - q:     state noise a.k.a. process noise
//   - r:     output noise a.k.a. measurement noise
//   - p:     number of filter particles
//   - pdf:   Probability Density Function (PDF) of filter output error
//
// If pdf is nil, zero mean Normal distribution with covariance of r is used.
// New returns error if non-positive number of particles is given or if the particles fail to be generated.
func New(m filter.Model, ic filter.InitCond, q, r filter.Noise, p int, pdf distmv.LogProber) (*BF, error) {
	// must have at least one particle; can't be negative
	if p <= 0 {
		return nil, fmt.Errorf("%w: invalid particle count: %d", filter.ErrInvalidArgument, p)
	}

	// size of state and output vectors
	nx, ny := m.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", filter.ErrInvalidArgument, nx, ny)
	}

	if err := kalman.CheckNoise(q, nx, "state"); err != nil {
		return nil, err
	}
	if q == nil {
		q, _ = noise.NewNone()
	}

	if err := kalman.CheckNoise(r, ny, "output"); err != nil {
		return nil, err
	}
	if r == nil {
		r, _ = noise.NewNone()
	}

	if pdf == nil {
		if r.Cov().SymmetricDim() == 0 {
			return nil, fmt.Errorf("%w: output error PDF requires output noise", filter.ErrInvalidArgument)
		}
		var ok bool
		if pdf, ok = distmv.NewNormal(make([]float64, ny), r.Cov(), nil); !ok {
			return nil, fmt.Errorf("%w: output noise covariance is not positive definite", filter.ErrDecomposition)
		}
	}

	if ic.State().Len() != nx || ic.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid initial condition dimensions: %d, %d", filter.ErrWrongVecLen, ic.State().Len(), ic.Cov().SymmetricDim())
	}

	b := &BF{
		m:      m,
		w:      make([]float64, p),
		q:      q,
		r:      r,
		errPDF: pdf,
		src:    xrand.NewSource(uint64(time.Now().UnixNano())),
	}

	if err := b.draw(ic.State(), ic.Cov(), p); err != nil {
		return nil, err
	}

	return b, nil
}

// draw replaces filter particles with p particles drawn from N(x, cov) and resets their weights.
func (b *BF) draw(x mat.Vector, cov mat.Symmetric, p int) error {
	// draw particles from distribution with covariance cov
	particles, err := rand.WithCovN(cov, p, b.src)
	if err != nil {
		return fmt.Errorf("failed to generate filter particles: %w", err)
	}

	// center particles around x
	for c := 0; c < p; c++ {
		col := particles.ColView(c).(*mat.VecDense)
		col.AddVec(col, x)
	}

	b.x = particles
	b.resetWeights()

	return nil
}

// resetWeights sets particle weights to equal probabilities:
// particle weights must sum up to 1 to represent probability
func (b *BF) resetWeights() {
	for i := range b.w {
		b.w[i] = 1 / float64(len(b.w))
	}
}

// Predict propagates filter particles dt time units forward, each perturbed by a sample of the state noise.
// It returns error if any particle fails to propagate, in which case the particles are left untouched.
func (b *BF) Predict(dt float64) error {
	rows, cols := b.x.Dims()
	xPred := mat.NewDense(rows, cols, nil)

	// propagate filter particles to the next step
	for c := 0; c < cols; c++ {
		xNext, err := b.m.Propagate(b.x.ColView(c), dt)
		if err != nil {
			return fmt.Errorf("particle state propagation failed: %w", err)
		}
		next := mat.VecDenseCopyOf(xNext)
		if b.q.Cov().SymmetricDim() != 0 {
			next.AddVec(next, b.q.Sample())
		}
		xPred.SetCol(c, next.RawVector().Data)
	}

	b.x = xPred

	return nil
}

// Update reweighs filter particles by the output error PDF of measurement z.
// It returns error if any particle fails to be observed or if all particle weights vanish,
// in which case the filter is left untouched.
// It panics if z has wrong dimension.
func (b *BF) Update(z mat.Vector) error {
	_, ny := b.m.Dims()
	if z.Len() != ny {
		panic(mat.ErrShape)
	}

	// log-weights: log(w) + log(p(z|x))
	lw := make([]float64, len(b.w))
	inn := mat.NewVecDense(ny, nil)
	for c := range b.w {
		y, err := b.m.Observe(b.x.ColView(c))
		if err != nil {
			return fmt.Errorf("particle state observation failed: %w", err)
		}
		inn.SubVec(z, y)
		lw[c] = math.Log(b.w[c]) + b.errPDF.LogProb(inn.RawVector().Data)
	}

	// log of the sum of the unnormalized weights is the measurement log-likelihood
	ll := floats.LogSumExp(lw)
	if math.IsInf(ll, -1) || math.IsNaN(ll) {
		return fmt.Errorf("%w: particle weights vanished", filter.ErrInvalidArgument)
	}

	// normalize the particle weights so they express probability
	for c := range b.w {
		b.w[c] = math.Exp(lw[c] - ll)
	}

	b.ll = ll
	b.updated = true

	return nil
}

// LogLikelihood returns the log-likelihood of the last measurement.
func (b *BF) LogLikelihood() (float64, error) {
	if !b.updated {
		return 0, fmt.Errorf("%w: no measurement has been processed", filter.ErrInvalidArgument)
	}

	return b.ll, nil
}

// Likelihood returns the likelihood of the last measurement.
// It never returns zero: underflows are clamped to the smallest positive float64.
func (b *BF) Likelihood() (float64, error) {
	ll, err := b.LogLikelihood()
	if err != nil {
		return 0, err
	}

	l := math.Exp(ll)
	if l == 0 {
		filter.Logger().Debug("likelihood underflow", "loglikelihood", ll)
		l = math.SmallestNonzeroFloat64
	}

	return l, nil
}

// State returns the weighted mean of filter particles
func (b *BF) State() mat.Vector {
	rows, _ := b.x.Dims()
	x := mat.NewVecDense(rows, nil)
	x.MulVec(b.x, mat.NewVecDense(len(b.w), b.w))

	return x
}

// Cov returns the weighted covariance of filter particles
func (b *BF) Cov() mat.Symmetric {
	rows, _ := b.x.Dims()
	mean := b.State()

	cov := mat.NewSymDense(rows, nil)
	d := mat.NewVecDense(rows, nil)
	for c, w := range b.w {
		d.SubVec(b.x.ColView(c), mean)
		cov.SymRankOne(cov, w, d)
	}

	return cov
}

// SetState redraws filter particles from N(x, cov) with equal weights.
// It returns error if either x or cov dimensions differ from the filter dimensions
// or if the particles fail to be drawn.
func (b *BF) SetState(x mat.Vector, cov mat.Symmetric) error {
	rows, _ := b.x.Dims()
	if x.Len() != rows || cov.SymmetricDim() != rows {
		return fmt.Errorf("%w: state: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), cov.SymmetricDim())
	}

	return b.draw(x, cov, len(b.w))
}

// Resample allows to resample filter particles with regularization parameter alpha.
// It generates new filter particles and replaces the existing ones with them.
// If invalid (non-positive) alpha is provided we use optimal alpha for gaussian kernel.
// It returns error if it fails to generate new filter particles.
func (b *BF) Resample(alpha float64) error {
	// randomly pick new particles based on their weights
	// rand.RouletteDrawN returns a slice of column indices to b.x
	indices, err := rand.RouletteDrawN(b.w, len(b.w), b.src)
	if err != nil {
		return fmt.Errorf("failed to sample filter particles: %w", err)
	}

	rows, cols := b.x.Dims()
	x := mat.NewDense(rows, cols, nil)
	for c, i := range indices {
		x.SetCol(c, mat.Col(nil, i, b.x))
	}

	// covariance of the resampled particles
	cov, err := mx.Cov(x, "cols")
	if err != nil {
		return fmt.Errorf("failed to calculate covariance matrix: %w", err)
	}

	// randomly draw values with given particle covariance
	m, err := rand.WithCovN(cov, cols, b.src)
	if err != nil {
		return fmt.Errorf("failed to draw random particle pertrubations: %w", err)
	}

	// if invalid alpha is given, use the optimal value for Gaussian
	if alpha <= 0 {
		alpha = AlphaGauss(rows, cols)
	}

	m.Scale(alpha, m)

	// add random perturbations to the new particles
	x.Add(x, m)

	b.x = x
	b.resetWeights()

	return nil
}

// Neff returns the effective number of particles: 1/sum(w^2)
func (b *BF) Neff() float64 {
	return 1 / floats.Dot(b.w, b.w)
}

// Model returns BF model
func (b *BF) Model() filter.Model {
	return b.m
}

// Particles returns BF particles
func (b *BF) Particles() mat.Matrix {
	p := &mat.Dense{}
	p.CloneFrom(b.x)

	return p
}

// Weights returns a vector containing BF particle weights
func (b *BF) Weights() mat.Vector {
	data := make([]float64, len(b.w))
	copy(data, b.w)

	return mat.NewVecDense(len(data), data)
}

// AlphaGauss computes optimal regulariation parameter for Gaussian kernel and returns it.
func AlphaGauss(r, c int) float64 {
	return math.Pow(4.0/(float64(c)*(float64(r)+2.0)), 1/(float64(r)+4.0))
}
