package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations.
//
//	x[n+1] = A*x[n]
//	y[n] = C*x[n]
func NewDiscrete(A, C *mat.Dense) (*Discrete, error) {
	sys, err := newSystem(A, C)
	if err != nil {
		return nil, err
	}

	return &Discrete{System: sys}, nil
}

// Transition returns state propagation matrix A; the time step is ignored.
func (d *Discrete) Transition(dt float64) mat.Matrix {
	return d.A
}

// Propagate returns the next internal state of the system: A*x.
func (d *Discrete) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	nx, _ := d.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector: %d != %d", filter.ErrWrongVecLen, x.Len(), nx)
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(d.A, x)

	return out, nil
}
