package filter

import "gonum.org/v1/gonum/mat"

// Filter is a recursive state estimator.
type Filter interface {
	// Predict propagates the filter state dt time units forward
	Predict(dt float64) error
	// Update corrects the filter state using measurement z
	Update(z mat.Vector) error
	// Likelihood returns the likelihood of the last measurement
	Likelihood() (float64, error)
	// LogLikelihood returns the log-likelihood of the last measurement
	LogLikelihood() (float64, error)
	// State returns a copy of the current state estimate
	State() mat.Vector
	// Cov returns a copy of the current state covariance
	Cov() mat.Symmetric
	// SetState replaces the filter state and its covariance
	SetState(x mat.Vector, cov mat.Symmetric) error
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates state x dt time units forward
	Propagate(x mat.Vector, dt float64) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe maps state x to the measurement space
	Observe(x mat.Vector) (mat.Vector, error)
}

// Model is a nonlinear model of a dynamical system
type Model interface {
	// Propagator is system propagator
	Propagator
	// Observer is system observer
	Observer
	// Dims returns state and output dimensions of the model
	Dims() (nx, ny int)
}

// LinearModel is a linear dynamical system whose propagation matrix
// may depend on the time step.
type LinearModel interface {
	// Transition returns state propagation matrix for time step dt
	Transition(dt float64) mat.Matrix
	// Observation returns observation matrix
	Observation() mat.Matrix
	// Dims returns state and output dimensions of the model
	Dims() (nx, ny int)
}

// Arithmetic implements vector arithmetic on a state or measurement space.
// It lets angular components wrap around without the filters knowing about them.
type Arithmetic interface {
	// Residual returns a - b
	Residual(a, b mat.Vector) *mat.VecDense
	// Add returns a + b
	Add(a, b mat.Vector) *mat.VecDense
	// Mean returns weighted mean of the rows of sigmas
	Mean(sigmas mat.Matrix, w []float64) *mat.VecDense
}

// Smoother smooths filter estimates using future information
type Smoother interface {
	// Smooth returns smoothed estimates; dts[k] is the time step between est[k] and est[k+1]
	Smooth(est []Estimate, dts []float64) ([]Estimate, error)
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
