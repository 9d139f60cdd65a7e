package erts

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/smooth"
	"gonum.org/v1/gonum/mat"
)

// ERTS is Extended Rauch-Tung-Striebel smoother
type ERTS struct {
	// q is state noise a.k.a. process noise
	q filter.Noise
	// m is system model
	m filter.Model
}

// New creates new ERTS and returns it.
// It returns error if the model dimensions are invalid or if the noise does not match them.
func New(m filter.Model, q filter.Noise) (*ERTS, error) {
	nx, ny := m.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", filter.ErrInvalidArgument, nx, ny)
	}

	if err := kalman.CheckNoise(q, nx, "state"); err != nil {
		return nil, err
	}

	return &ERTS{
		q: q,
		m: m,
	}, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm for nonlinear models.
// The model is linearized around every filtered estimate using its propagation Jacobian.
// It returns error if dts length differs from est length or smoothing could not be computed.
func (s *ERTS) Smooth(est []filter.Estimate, dts []float64) ([]filter.Estimate, error) {
	nx, _ := s.m.Dims()

	return smooth.RTS(est, dts, kalman.NoiseCov(s.q, nx), func(x mat.Vector, dt float64) (mat.Matrix, mat.Vector, error) {
		xp, err := s.m.Propagate(x, dt)
		if err != nil {
			return nil, nil, fmt.Errorf("model state propagation failed: %w", err)
		}

		f, err := kalman.Jacobian(nx, func(x mat.Vector) (mat.Vector, error) {
			return s.m.Propagate(x, dt)
		}, x)
		if err != nil {
			return nil, nil, err
		}

		return f, xp, nil
	})
}
