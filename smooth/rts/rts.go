package rts

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/smooth"
	"gonum.org/v1/gonum/mat"
)

// RTS is Rauch-Tung-Striebel smoother
type RTS struct {
	// q is state noise a.k.a. process noise
	q filter.Noise
	// m is system model
	m filter.LinearModel
}

// New creates new RTS and returns it.
// It returns error if the model dimensions are invalid or if the noise does not match them.
func New(m filter.LinearModel, q filter.Noise) (*RTS, error) {
	nx, ny := m.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", filter.ErrInvalidArgument, nx, ny)
	}

	if err := kalman.CheckNoise(q, nx, "state"); err != nil {
		return nil, err
	}

	return &RTS{
		q: q,
		m: m,
	}, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// It uses estimates est to compute smoothed estimates and returns them.
// dts[k] is the time step between est[k] and est[k+1].
// It returns error if dts length differs from est length or smoothing could not be computed.
func (s *RTS) Smooth(est []filter.Estimate, dts []float64) ([]filter.Estimate, error) {
	nx, _ := s.m.Dims()

	return smooth.RTS(est, dts, kalman.NoiseCov(s.q, nx), func(x mat.Vector, dt float64) (mat.Matrix, mat.Vector, error) {
		f := s.m.Transition(dt)

		xp := mat.NewVecDense(nx, nil)
		xp.MulVec(f, x)

		return f, xp, nil
	})
}
