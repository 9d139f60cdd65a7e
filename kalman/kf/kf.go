package kf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/noise"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// m is KF system model
	m filter.LinearModel
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// x is the filter state
	x *mat.VecDense
	// p is the KF covariance matrix
	p *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// s is innovation covariance
	s *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - m:      linear dynamical system model
//   - init:   initial condition of the filter
//   - q:      state noise a.k.a. process noise
//   - r:      output noise a.k.a. measurement noise
//
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers
//   - invalid state or output noise is given: noise covariance must either be nil or match the model dimensions
//   - initial condition dimensions do not match the model
func New(m filter.LinearModel, init filter.InitCond, q, r filter.Noise) (*KF, error) {
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

	rows, cols := m.Observation().Dims()
	if rows != ny || cols != nx {
		return nil, fmt.Errorf("%w: invalid observation matrix dimensions: [%d x %d]", filter.ErrInvalidArgument, rows, cols)
	}

	if init.State().Len() != nx || init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid initial condition dimensions: %d, %d", filter.ErrWrongVecLen, init.State().Len(), init.Cov().SymmetricDim())
	}

	x := &mat.VecDense{}
	x.CloneFromVec(init.State())

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	return &KF{
		m:   m,
		q:   q,
		r:   r,
		x:   x,
		p:   p,
		inn: &mat.VecDense{},
		s:   &mat.SymDense{},
		k:   mat.NewDense(nx, ny, nil),
	}, nil
}

// Predict propagates the filter state dt time units forward: x = F*x, P = F*P*F' + Q.
// It panics if the model transition matrix does not match the state dimension.
func (k *KF) Predict(dt float64) error {
	nx, _ := k.m.Dims()
	f := k.m.Transition(dt)

	x := mat.NewVecDense(nx, nil)
	x.MulVec(f, k.x)

	p := kalman.Propagate(f, k.p, kalman.NoiseCov(k.q, nx))

	k.x = x
	k.p = p

	return nil
}

// Update corrects the filter state using the measurement z.
// It returns error if the innovation covariance can not be inverted,
// in which case the filter state is left untouched.
// It panics if z has wrong dimension.
func (k *KF) Update(z mat.Vector) error {
	nx, ny := k.m.Dims()
	if z.Len() != ny {
		panic(mat.ErrShape)
	}

	h := k.m.Observation()
	r := kalman.NoiseCov(k.r, ny)

	// innovation vector
	y := mat.NewVecDense(ny, nil)
	y.MulVec(h, k.x)
	y.SubVec(z, y)

	// innovation covariance
	s := kalman.InnovationCov(h, k.p, r)

	// P*H'
	pht := &mat.Dense{}
	pht.Mul(k.p, h.T())

	gain, err := kalman.Gain(pht, s)
	if err != nil {
		return err
	}

	x := mat.NewVecDense(nx, nil)
	x.MulVec(gain, y)
	x.AddVec(k.x, x)

	k.x = x
	k.p = kalman.Joseph(k.p, gain, h, r)
	k.inn = y
	k.s = s
	k.k = gain

	return nil
}

// LogLikelihood returns the log-likelihood of the last measurement.
func (k *KF) LogLikelihood() (float64, error) {
	return kalman.LogLikelihood(k.inn, k.s)
}

// Likelihood returns the likelihood of the last measurement.
// It never returns zero: underflows are clamped to the smallest positive float64.
func (k *KF) Likelihood() (float64, error) {
	return kalman.Likelihood(k.inn, k.s)
}

// State returns a copy of KF state
func (k *KF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetState sets KF state and covariance.
// It returns error if either x or cov dimensions differ from the filter dimensions.
func (k *KF) SetState(x mat.Vector, cov mat.Symmetric) error {
	if x.Len() != k.x.Len() || cov.SymmetricDim() != k.x.Len() {
		return fmt.Errorf("%w: state: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), cov.SymmetricDim())
	}

	k.x.CopyVec(x)
	k.p.CopySym(cov)

	return nil
}

// Model returns KF model
func (k *KF) Model() filter.LinearModel {
	return k.m
}

// StateNoise returns state noise
func (k *KF) StateNoise() filter.Noise {
	return k.q
}

// SetStateNoise replaces state noise.
// It returns error if the noise dimension does not match the model.
func (k *KF) SetStateNoise(q filter.Noise) error {
	nx, _ := k.m.Dims()
	if err := kalman.CheckNoise(q, nx, "state"); err != nil {
		return err
	}
	if q == nil {
		q, _ = noise.NewZero(nx)
	}
	k.q = q

	return nil
}

// OutputNoise returns output noise
func (k *KF) OutputNoise() filter.Noise {
	return k.r
}

// SetOutputNoise replaces output noise.
// It returns error if the noise dimension does not match the model.
func (k *KF) SetOutputNoise(r filter.Noise) error {
	_, ny := k.m.Dims()
	if err := kalman.CheckNoise(r, ny, "output"); err != nil {
		return err
	}
	if r == nil {
		r, _ = noise.NewZero(ny)
	}
	k.r = r

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the last innovation vector
func (k *KF) Innovation() mat.Vector {
	inn := &mat.VecDense{}
	if !k.inn.IsEmpty() {
		inn.CloneFromVec(k.inn)
	}

	return inn
}

// InnovationCov returns the last innovation covariance
func (k *KF) InnovationCov() mat.Symmetric {
	s := &mat.SymDense{}
	if !k.s.IsEmpty() {
		s = mat.NewSymDense(k.s.SymmetricDim(), nil)
		s.CopySym(k.s)
	}

	return s
}
