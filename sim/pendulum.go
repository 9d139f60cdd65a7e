package sim

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/state"
	"gonum.org/v1/gonum/mat"
)

// Gravity is standard gravity in m/s^2
const Gravity = 9.80665

// Pendulum is a damped pendulum of unknown length carrying an inertial
// measurement unit at its tip. Its state is the swing angle, the angular
// rate and the pendulum radius. The IMU measures the tangential and radial
// specific force and the angular rate.
type Pendulum struct {
	// Damping is the viscous damping coefficient in 1/s
	Damping float64
	// Gravity is the gravitational acceleration
	Gravity float64
	// Step is the maximum integration step
	Step   float64
	layout *state.Layout
}

// NewPendulum creates new Pendulum with the given damping and returns it.
// It returns error if damping is negative.
func NewPendulum(damping float64) (*Pendulum, error) {
	if damping < 0 {
		return nil, fmt.Errorf("%w: negative damping: %g", filter.ErrInvalidArgument, damping)
	}

	layout, err := state.NewLayout(
		state.Field{Name: "theta", Kind: state.Angle},
		state.Field{Name: "omega", Kind: state.Linear},
		state.Field{Name: "radius", Kind: state.Linear},
	)
	if err != nil {
		return nil, err
	}

	return &Pendulum{
		Damping: damping,
		Gravity: Gravity,
		Step:    1e-3,
		layout:  layout,
	}, nil
}

// Layout returns pendulum state layout.
func (p *Pendulum) Layout() *state.Layout {
	return p.layout
}

// Dims returns state and output dimensions.
func (p *Pendulum) Dims() (nx, ny int) {
	return 3, 3
}

// Propagate integrates the pendulum equations of motion dt time units forward
// using semi-implicit Euler sub-steps no longer than p.Step.
// It returns error if x has wrong dimension or if the radius is not positive.
func (p *Pendulum) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != 3 {
		return nil, fmt.Errorf("%w: invalid state vector: %d != 3", filter.ErrWrongVecLen, x.Len())
	}

	theta := x.AtVec(0)
	omega := x.AtVec(1)
	radius := x.AtVec(2)
	if radius <= 0 {
		return nil, fmt.Errorf("%w: non-positive radius: %g", filter.ErrInvalidArgument, radius)
	}

	steps := 1
	if p.Step > 0 {
		steps = int(math.Ceil(math.Abs(dt) / p.Step))
		if steps < 1 {
			steps = 1
		}
	}
	h := dt / float64(steps)

	for i := 0; i < steps; i++ {
		alpha := -p.Gravity/radius*math.Sin(theta) - p.Damping*omega
		omega += alpha * h
		theta += omega * h
	}

	return mat.NewVecDense(3, []float64{state.NormalizeAngle(theta), omega, radius}), nil
}

// Observe returns the IMU reading for state x:
// tangential specific force, radial specific force and angular rate.
func (p *Pendulum) Observe(x mat.Vector) (mat.Vector, error) {
	if x.Len() != 3 {
		return nil, fmt.Errorf("%w: invalid state vector: %d != 3", filter.ErrWrongVecLen, x.Len())
	}

	theta := x.AtVec(0)
	omega := x.AtVec(1)
	radius := x.AtVec(2)

	// the gravity term of the tangential acceleration cancels out
	tangential := -p.Damping * omega * radius
	radial := radius*omega*omega + p.Gravity*math.Cos(theta)

	return mat.NewVecDense(3, []float64{tangential, radial, omega}), nil
}
