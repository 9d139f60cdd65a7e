package noise

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Zero is zero noise i.e. no noise
type Zero struct {
	// mean stores zero mean values
	mean []float64
}

// NewZero creates new zero noise i.e. zero mean and zero covariance.
// It returns error if size is negative.
func NewZero(size int) (*Zero, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: invalid noise dimension: %d", filter.ErrInvalidArgument, size)
	}

	return &Zero{
		mean: make([]float64, size),
	}, nil
}

// Sample returns a vector with zero values.
// Zero noise of size 0 returns an empty vector.
func (e *Zero) Sample() mat.Vector {
	if len(e.mean) == 0 {
		return &mat.VecDense{}
	}

	return mat.NewVecDense(len(e.mean), nil)
}

// Cov returns symmetric matrix with zero values.
// Zero noise of size 0 returns an empty matrix.
func (e *Zero) Cov() mat.Symmetric {
	if len(e.mean) == 0 {
		return &mat.SymDense{}
	}

	return mat.NewSymDense(len(e.mean), nil)
}

// Mean returns Zero mean.
func (e *Zero) Mean() []float64 {
	return make([]float64, len(e.mean))
}

// Reset does nothing: it's here to implement filter.Noise interface
func (e *Zero) Reset() {}

// String implements the Stringer interface.
func (e *Zero) String() string {
	if len(e.mean) == 0 {
		return "Zero{\nMean=[]\nCov=[]\n}"
	}
	return fmt.Sprintf("Zero{\nMean=%v\nCov=%v\n}", e.Mean(), mat.Formatted(e.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
