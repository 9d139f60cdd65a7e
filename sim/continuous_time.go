package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations
//
//	dx/dt = A*x
//	y = C*x
func NewContinuous(A, C *mat.Dense) (*Continuous, error) {
	sys, err := newSystem(A, C)
	if err != nil {
		return nil, err
	}

	return &Continuous{System: sys}, nil
}

// Transition returns the discrete-time propagation matrix exp(A*dt).
func (ct *Continuous) Transition(dt float64) mat.Matrix {
	f := &mat.Dense{}
	f.Scale(dt, ct.A)
	f.Exp(f)

	return f
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using Ts as the sampling time.
func (ct *Continuous) ToDiscrete(Ts float64) (*Discrete, error) {
	// See Discrete-Time Control Systems by Katsuhiko Ogata, Eq. (5-73)
	return NewDiscrete(mat.DenseCopyOf(ct.Transition(Ts)), ct.C)
}

// Propagate propagates internal state x by a timestep dt using the exact
// solution of the system: exp(A*dt)*x.
func (ct *Continuous) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	nx, _ := ct.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector: %d != %d", filter.ErrWrongVecLen, x.Len(), nx)
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(ct.Transition(dt), x)

	return out, nil
}
