package ekf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/noise"
	"gonum.org/v1/gonum/mat"
)

// JacFunc returns the Jacobian of a vector function evaluated at x.
type JacFunc func(x mat.Vector) (*mat.Dense, error)

// EKF is Extended Kalman Filter
type EKF struct {
	// m is EKF system model
	m filter.Model
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// x is the filter state
	x *mat.VecDense
	// p is the EKF covariance matrix
	p *mat.SymDense
	// f is the last propagation Jacobian
	f *mat.Dense
	// h is the last observation Jacobian
	h *mat.Dense
	// inn is innovation vector
	inn *mat.VecDense
	// s is innovation covariance
	s *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new EKF and returns it.
// It accepts the following parameters:
//   - m:      dynamical system model
//   - init:   initial condition of the filter
//   - q:      state a.k.a. process noise
//   - r:      output a.k.a. measurement noise
//
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers
//   - invalid state or output noise is given: noise covariance must either be nil or match the model dimensions
//   - initial condition dimensions do not match the model
func New(m filter.Model, init filter.InitCond, q, r filter.Noise) (*EKF, error) {
	// size of the state and output vectors
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

	if init.State().Len() != nx || init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid initial condition dimensions: %d, %d", filter.ErrWrongVecLen, init.State().Len(), init.Cov().SymmetricDim())
	}

	x := &mat.VecDense{}
	x.CloneFromVec(init.State())

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	return &EKF{
		m:   m,
		q:   q,
		r:   r,
		x:   x,
		p:   p,
		f:   mat.NewDense(nx, nx, nil),
		h:   mat.NewDense(ny, nx, nil),
		inn: &mat.VecDense{},
		s:   &mat.SymDense{},
		k:   mat.NewDense(nx, ny, nil),
	}, nil
}

// PropagationJacobian returns the Jacobian of the model propagation for time step dt at x.
func (k *EKF) PropagationJacobian(dt float64) JacFunc {
	nx, _ := k.m.Dims()
	return func(x mat.Vector) (*mat.Dense, error) {
		return kalman.Jacobian(nx, func(x mat.Vector) (mat.Vector, error) {
			return k.m.Propagate(x, dt)
		}, x)
	}
}

// ObservationJacobian returns the Jacobian of the model observation at x.
func (k *EKF) ObservationJacobian() JacFunc {
	_, ny := k.m.Dims()
	return func(x mat.Vector) (*mat.Dense, error) {
		return kalman.Jacobian(ny, k.m.Observe, x)
	}
}

// Predict propagates the filter state dt time units forward.
// The covariance is propagated through the Jacobian of the model at the current state.
// It returns error if the model fails to propagate the state, in which case
// the filter state is left untouched.
func (k *EKF) Predict(dt float64) error {
	nx, _ := k.m.Dims()

	xNext, err := k.m.Propagate(k.x, dt)
	if err != nil {
		return fmt.Errorf("system state propagation failed: %w", err)
	}

	f, err := k.PropagationJacobian(dt)(k.x)
	if err != nil {
		return fmt.Errorf("failed to calculate propagation Jacobian: %w", err)
	}

	k.p = kalman.Propagate(f, k.p, kalman.NoiseCov(k.q, nx))
	k.x = mat.VecDenseCopyOf(xNext)
	k.f = f

	return nil
}

// Update corrects the filter state using the measurement z.
// It returns error if the model fails to observe the state or if the innovation
// covariance can not be inverted, in which case the filter state is left untouched.
// It panics if z has wrong dimension.
func (k *EKF) Update(z mat.Vector) error {
	_, ny := k.m.Dims()
	if z.Len() != ny {
		panic(mat.ErrShape)
	}

	y, err := k.m.Observe(k.x)
	if err != nil {
		return fmt.Errorf("failed to observe system output: %w", err)
	}

	h, err := k.ObservationJacobian()(k.x)
	if err != nil {
		return fmt.Errorf("failed to calculate observation Jacobian: %w", err)
	}

	r := kalman.NoiseCov(k.r, ny)
	s := kalman.InnovationCov(h, k.p, r)

	// P*H'
	pht := &mat.Dense{}
	pht.Mul(k.p, h.T())

	gain, err := kalman.Gain(pht, s)
	if err != nil {
		return err
	}

	// innovation vector
	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(z, y)

	x := &mat.VecDense{}
	x.MulVec(gain, inn)
	x.AddVec(k.x, x)

	k.x = x
	k.p = kalman.Joseph(k.p, gain, h, r)
	k.h = h
	k.inn = inn
	k.s = s
	k.k = gain

	return nil
}

// LogLikelihood returns the log-likelihood of the last measurement.
func (k *EKF) LogLikelihood() (float64, error) {
	return kalman.LogLikelihood(k.inn, k.s)
}

// Likelihood returns the likelihood of the last measurement.
func (k *EKF) Likelihood() (float64, error) {
	return kalman.Likelihood(k.inn, k.s)
}

// State returns a copy of EKF state
func (k *EKF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// Cov returns EKF covariance
func (k *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetState sets EKF state and covariance.
// It returns error if either x or cov dimensions differ from the filter dimensions.
func (k *EKF) SetState(x mat.Vector, cov mat.Symmetric) error {
	if x.Len() != k.x.Len() || cov.SymmetricDim() != k.x.Len() {
		return fmt.Errorf("%w: state: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), cov.SymmetricDim())
	}

	k.x.CopyVec(x)
	k.p.CopySym(cov)

	return nil
}

// Model returns EKF model
func (k *EKF) Model() filter.Model {
	return k.m
}

// StateNoise returns state noise
func (k *EKF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *EKF) OutputNoise() filter.Noise {
	return k.r
}

// Gain returns Kalman gain
func (k *EKF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the last innovation vector
func (k *EKF) Innovation() mat.Vector {
	inn := &mat.VecDense{}
	if !k.inn.IsEmpty() {
		inn.CloneFromVec(k.inn)
	}

	return inn
}

// InnovationCov returns the last innovation covariance
func (k *EKF) InnovationCov() mat.Symmetric {
	s := &mat.SymDense{}
	if !k.s.IsEmpty() {
		s = mat.NewSymDense(k.s.SymmetricDim(), nil)
		s.CopySym(k.s)
	}

	return s
}
