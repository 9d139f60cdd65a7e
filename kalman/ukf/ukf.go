package ukf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/matrix"
	"github.com/milosgajdos/go-fusion/noise"
	"github.com/milosgajdos/go-fusion/sigma"
	"github.com/milosgajdos/go-fusion/state"
	"gonum.org/v1/gonum/mat"
)

// Option configures UKF
type Option func(*UKF)

// WithStateArithmetic sets the arithmetic used to average, add and subtract states.
func WithStateArithmetic(a filter.Arithmetic) Option {
	return func(k *UKF) {
		k.xArith = a
	}
}

// WithOutputArithmetic sets the arithmetic used to average and subtract measurements.
func WithOutputArithmetic(a filter.Arithmetic) Option {
	return func(k *UKF) {
		k.zArith = a
	}
}

// UKF is Unscented (aka Sigma Point) Kalman Filter
type UKF struct {
	// m is UKF system model
	m filter.Model
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// sp generates sigma points and their weights
	sp sigma.Points
	// xArith is state space arithmetic
	xArith filter.Arithmetic
	// zArith is measurement space arithmetic
	zArith filter.Arithmetic
	// x is the filter state
	x *mat.VecDense
	// p is the UKF covariance matrix
	p *mat.SymDense
	// sigmasF stores sigma points of the prior, one per row
	sigmasF *mat.Dense
	// zp is the predicted measurement
	zp *mat.VecDense
	// inn is innovation vector
	inn *mat.VecDense
	// s is innovation covariance
	s *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new UKF and returns it.
// It accepts the following parameters:
//   - m:      dynamical system model
//   - init:   initial condition of the filter
//   - q:      state noise a.k.a. process noise
//   - r:      output noise a.k.a. measurement noise
//   - sp:     sigma points generator
//
// Both state and output arithmetic default to plain vector arithmetic.
// It returns error if the model, noise, sigma points or initial condition dimensions do not match.
func New(m filter.Model, init filter.InitCond, q, r filter.Noise, sp sigma.Points, opts ...Option) (*UKF, error) {
	nx, ny := m.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", filter.ErrInvalidArgument, nx, ny)
	}

	if err := kalman.CheckNoise(q, nx, "state"); err != nil {
		return nil, err
	}
	if q == nil {
		q, _ = noise.NewZero(nx)
	}

	if err := kalman.CheckNoise(r, ny, "output"); err != nil {
		return nil, err
	}
	if r == nil {
		r, _ = noise.NewZero(ny)
	}

	if sp == nil || sp.Dim() != nx {
		return nil, fmt.Errorf("%w: sigma points do not match state dimension %d", filter.ErrInvalidArgument, nx)
	}

	if init.State().Len() != nx || init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid initial condition dimensions: %d, %d", filter.ErrWrongVecLen, init.State().Len(), init.Cov().SymmetricDim())
	}

	x := &mat.VecDense{}
	x.CloneFromVec(init.State())

	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	k := &UKF{
		m:      m,
		q:      q,
		r:      r,
		sp:     sp,
		xArith: state.Cartesian{},
		zArith: state.Cartesian{},
		x:      x,
		p:      p,
		zp:     &mat.VecDense{},
		inn:    &mat.VecDense{},
		s:      &mat.SymDense{},
		k:      mat.NewDense(nx, ny, nil),
	}

	for _, opt := range opts {
		opt(k)
	}

	return k, nil
}

// propagate passes every sigma point through the model propagator.
func (k *UKF) propagate(sigmas *mat.Dense, dt float64) (*mat.Dense, error) {
	nx, _ := k.m.Dims()
	rows, _ := sigmas.Dims()

	out := mat.NewDense(rows, nx, nil)
	for i := 0; i < rows; i++ {
		v, err := k.m.Propagate(sigmas.RowView(i), dt)
		if err != nil {
			return nil, fmt.Errorf("failed to propagate sigma point %d: %w", i, err)
		}
		if v.Len() != nx {
			panic(mat.ErrShape)
		}
		out.SetRow(i, mat.Col(nil, 0, v))
	}

	return out, nil
}

// observe passes every sigma point through the model observer.
func (k *UKF) observe(sigmas *mat.Dense) (*mat.Dense, error) {
	_, ny := k.m.Dims()
	rows, _ := sigmas.Dims()

	out := mat.NewDense(rows, ny, nil)
	for i := 0; i < rows; i++ {
		v, err := k.m.Observe(sigmas.RowView(i))
		if err != nil {
			return nil, fmt.Errorf("failed to observe sigma point %d: %w", i, err)
		}
		if v.Len() != ny {
			panic(mat.ErrShape)
		}
		out.SetRow(i, mat.Col(nil, 0, v))
	}

	return out, nil
}

// Predict propagates the filter state dt time units forward.
// Sigma points are regenerated from the prior and kept for the next Update.
// It returns error if the sigma points can not be generated or propagated,
// in which case the filter state is left untouched.
func (k *UKF) Predict(dt float64) error {
	nx, _ := k.m.Dims()

	sigmas, err := k.sp.SigmaPoints(k.x, k.p)
	if err != nil {
		return err
	}

	sigmasF, err := k.propagate(sigmas, dt)
	if err != nil {
		return err
	}

	x, p := UnscentedTransform(sigmasF, k.sp.Wm(), k.sp.Wc(), kalman.NoiseCov(k.q, nx), k.xArith)

	prior, err := k.sp.SigmaPoints(x, p)
	if err != nil {
		return err
	}

	k.x = x
	k.p = p
	k.sigmasF = prior

	return nil
}

// Update corrects the filter state using the measurement z.
// It returns error if the sigma points can not be observed or the innovation covariance
// can not be inverted, in which case the filter state is left untouched.
// It panics if z has wrong dimension.
func (k *UKF) Update(z mat.Vector) error {
	nx, ny := k.m.Dims()
	if z.Len() != ny {
		panic(mat.ErrShape)
	}

	sigmasF := k.sigmasF
	if sigmasF == nil {
		var err error
		if sigmasF, err = k.sp.SigmaPoints(k.x, k.p); err != nil {
			return err
		}
	}

	sigmasH, err := k.observe(sigmasF)
	if err != nil {
		return err
	}

	wc := k.sp.Wc()
	zp, s := UnscentedTransform(sigmasH, k.sp.Wm(), wc, kalman.NoiseCov(k.r, ny), k.zArith)

	// state and measurement cross covariance
	pxz := mat.NewDense(nx, ny, nil)
	for i, w := range wc {
		dx := k.xArith.Residual(sigmasF.RowView(i), k.x)
		dz := k.zArith.Residual(sigmasH.RowView(i), zp)
		pxz.Add(pxz, matrix.Outer(w, dx, dz))
	}

	gain, err := kalman.Gain(pxz, s)
	if err != nil {
		return err
	}

	y := k.zArith.Residual(z, zp)

	ky := mat.NewVecDense(nx, nil)
	ky.MulVec(gain, y)
	x := k.xArith.Add(k.x, ky)

	// P - K*S*K'
	ks := &mat.Dense{}
	ks.Mul(gain, s)
	ksk := &mat.Dense{}
	ksk.Mul(ks, gain.T())
	ksk.Sub(k.p, ksk)

	k.x = x
	k.p = matrix.Symmetrize(ksk)
	k.sigmasF = sigmasF
	k.zp = zp
	k.inn = y
	k.s = s
	k.k = gain

	return nil
}

// LogLikelihood returns the log-likelihood of the last measurement.
func (k *UKF) LogLikelihood() (float64, error) {
	return kalman.LogLikelihood(k.inn, k.s)
}

// Likelihood returns the likelihood of the last measurement.
// It never returns zero: underflows are clamped to the smallest positive float64.
func (k *UKF) Likelihood() (float64, error) {
	return kalman.Likelihood(k.inn, k.s)
}

// State returns a copy of UKF state
func (k *UKF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// Cov returns UKF covariance
func (k *UKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetState sets UKF state and covariance and drops the stored sigma points.
// It returns error if either x or cov dimensions differ from the filter dimensions.
func (k *UKF) SetState(x mat.Vector, cov mat.Symmetric) error {
	if x.Len() != k.x.Len() || cov.SymmetricDim() != k.x.Len() {
		return fmt.Errorf("%w: state: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), cov.SymmetricDim())
	}

	k.x.CopyVec(x)
	k.p.CopySym(cov)
	k.sigmasF = nil

	return nil
}

// Model returns UKF model
func (k *UKF) Model() filter.Model {
	return k.m
}

// StateNoise returns state noise
func (k *UKF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *UKF) OutputNoise() filter.Noise {
	return k.r
}

// SigmaPoints returns the sigma points generator
func (k *UKF) SigmaPoints() sigma.Points {
	return k.sp
}

// Prediction returns the last predicted measurement
func (k *UKF) Prediction() mat.Vector {
	zp := &mat.VecDense{}
	if !k.zp.IsEmpty() {
		zp.CloneFromVec(k.zp)
	}

	return zp
}

// Gain returns Kalman gain
func (k *UKF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the last innovation vector
func (k *UKF) Innovation() mat.Vector {
	inn := &mat.VecDense{}
	if !k.inn.IsEmpty() {
		inn.CloneFromVec(k.inn)
	}

	return inn
}

// InnovationCov returns the last innovation covariance
func (k *UKF) InnovationCov() mat.Symmetric {
	s := &mat.SymDense{}
	if !k.s.IsEmpty() {
		s = mat.NewSymDense(k.s.SymmetricDim(), nil)
		s.CopySym(k.s)
	}

	return s
}
