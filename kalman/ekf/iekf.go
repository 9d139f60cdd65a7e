package ekf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"gonum.org/v1/gonum/mat"
)

// IEKF is Iterated Extended Kalman Filter
type IEKF struct {
	// ekf.EKF is extended Kalman filter
	*EKF
	// n is number of update iterations
	n int
}

// NewIter creates new Iterated EKF and returns it.
// It accepts the following parameters:
//   - m:  dynamical system model
//   - ic: initial condition of the filter
//   - q:  state a.k.a. process noise
//   - r:  output a.k.a. measurement noise
//   - n:  number of update iterations
//
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers
//   - invalid state or output noise is given: noise covariance must either be nil or match the model dimensions
//   - invalid number of update iterations is given: n must be positive
func NewIter(m filter.Model, ic filter.InitCond, q, r filter.Noise, n int) (*IEKF, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid number of update iterations: %d", filter.ErrInvalidArgument, n)
	}

	// IEKF is EKF which uses iterating updates
	f, err := New(m, ic, q, r)
	if err != nil {
		return nil, err
	}

	return &IEKF{
		EKF: f,
		n:   n,
	}, nil
}

// Update corrects the filter state using the measurement z.
// The observation model is relinearized around the updated state n times (Gauss-Newton iterations).
// It returns error if the model fails to observe the state or if the innovation
// covariance can not be inverted, in which case the filter state is left untouched.
// It panics if z has wrong dimension.
func (k *IEKF) Update(z mat.Vector) error {
	nx, ny := k.m.Dims()
	if z.Len() != ny {
		panic(mat.ErrShape)
	}

	r := kalman.NoiseCov(k.r, ny)
	hJac := k.ObservationJacobian()

	xi := mat.VecDenseCopyOf(k.x)
	var (
		gain *mat.Dense
		h    *mat.Dense
		s    *mat.SymDense
		inn  *mat.VecDense
	)

	for i := 0; i < k.n; i++ {
		y, err := k.m.Observe(xi)
		if err != nil {
			return fmt.Errorf("failed to observe system output: %w", err)
		}

		h, err = hJac(xi)
		if err != nil {
			return fmt.Errorf("failed to calculate observation Jacobian: %w", err)
		}

		s = kalman.InnovationCov(h, k.p, r)

		pht := &mat.Dense{}
		pht.Mul(k.p, h.T())

		gain, err = kalman.Gain(pht, s)
		if err != nil {
			return err
		}

		inn = mat.NewVecDense(ny, nil)
		inn.SubVec(z, y)

		// z - h(xi) - H*(x - xi)
		dx := mat.NewVecDense(nx, nil)
		dx.SubVec(k.x, xi)
		hdx := mat.NewVecDense(ny, nil)
		hdx.MulVec(h, dx)
		corr := mat.NewVecDense(ny, nil)
		corr.SubVec(inn, hdx)

		next := mat.NewVecDense(nx, nil)
		next.MulVec(gain, corr)
		next.AddVec(k.x, next)
		xi = next
	}

	k.x = xi
	k.p = kalman.Joseph(k.p, gain, h, r)
	k.h = h
	k.inn = inn
	k.s = s
	k.k = gain

	return nil
}
