package noise

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// DiscreteWhite returns the process noise covariance of a discretized
// constant white noise model with variance variance and time step dt.
// dim is the number of derivatives modelled per block (2: position and velocity,
// 3: adds acceleration, 4: adds jerk). The returned matrix is block diagonal
// with blockSize copies of the dim x dim block.
// It returns error if dim is not 2, 3 or 4 or if blockSize is not positive.
func DiscreteWhite(dim int, dt, variance float64, blockSize int) (*mat.SymDense, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: invalid block size: %d", filter.ErrInvalidArgument, blockSize)
	}

	var q []float64
	switch dim {
	case 2:
		q = []float64{
			0.25 * math.Pow(dt, 4), 0.5 * math.Pow(dt, 3),
			0.5 * math.Pow(dt, 3), math.Pow(dt, 2),
		}
	case 3:
		q = []float64{
			0.25 * math.Pow(dt, 4), 0.5 * math.Pow(dt, 3), 0.5 * math.Pow(dt, 2),
			0.5 * math.Pow(dt, 3), math.Pow(dt, 2), dt,
			0.5 * math.Pow(dt, 2), dt, 1,
		}
	case 4:
		q = []float64{
			math.Pow(dt, 6) / 36, math.Pow(dt, 5) / 12, math.Pow(dt, 4) / 6, math.Pow(dt, 3) / 6,
			math.Pow(dt, 5) / 12, math.Pow(dt, 4) / 4, math.Pow(dt, 3) / 2, math.Pow(dt, 2) / 2,
			math.Pow(dt, 4) / 6, math.Pow(dt, 3) / 2, math.Pow(dt, 2), dt,
			math.Pow(dt, 3) / 6, math.Pow(dt, 2) / 2, dt, 1,
		}
	default:
		return nil, fmt.Errorf("%w: dim must be 2, 3 or 4, got %d", filter.ErrInvalidArgument, dim)
	}

	block := mat.NewSymDense(dim, q)

	n := dim * blockSize
	cov := mat.NewSymDense(n, nil)
	for b := 0; b < blockSize; b++ {
		off := b * dim
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				cov.SetSym(off+i, off+j, variance*block.At(i, j))
			}
		}
	}

	return cov, nil
}
