package noise

import "gonum.org/v1/gonum/mat"

// None is noise with empty mean and empty covariance matrix.
// None is different from Zero: its mean vector length is 0 and its covariance matrix is zero size.
// Filters treat None as a zero matrix of whatever dimension they need.
type None struct{}

// NewNone creates new None noise and returns it
func NewNone() (*None, error) {
	return &None{}, nil
}

// Sample returns zero size vector.
func (e *None) Sample() mat.Vector {
	return &mat.VecDense{}
}

// Cov returns zero size covariance matrix.
func (e *None) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// Mean returns None mean.
func (e *None) Mean() []float64 {
	return nil
}

// Reset does nothing: it's here to implement filter.Noise interface
func (e *None) Reset() {}

// String implements the Stringer interface.
func (e *None) String() string {
	return "None{}"
}
