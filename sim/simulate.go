package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/rand"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Sample is a single simulation step
type Sample struct {
	// T is the sample time
	T float64
	// Dt is the time elapsed since the previous sample
	Dt float64
	// X is the true system state
	X mat.Vector
	// Z is the noisy measurement of X
	Z mat.Vector
}

// Simulate propagates model m from x0 in steps of dt and returns the
// time-ordered samples. Measurements are corrupted by samples of r if it is not nil.
// The first sample holds x0 and has zero Dt.
// It returns error if steps is not positive or if m fails to propagate or observe the state.
func Simulate(m filter.Model, x0 mat.Vector, dt float64, steps int, r filter.Noise) ([]Sample, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: invalid number of steps: %d", filter.ErrInvalidArgument, steps)
	}

	samples := make([]Sample, 0, steps)
	x := mat.VecDenseCopyOf(x0)
	t, h := 0.0, 0.0

	for i := 0; i < steps; i++ {
		if i > 0 {
			next, err := m.Propagate(x, dt)
			if err != nil {
				return nil, fmt.Errorf("step %d: failed to propagate state: %w", i, err)
			}
			x = mat.VecDenseCopyOf(next)
			t += dt
			h = dt
		}

		y, err := m.Observe(x)
		if err != nil {
			return nil, fmt.Errorf("step %d: failed to observe state: %w", i, err)
		}
		z := mat.VecDenseCopyOf(y)
		if r != nil && r.Cov().SymmetricDim() == z.Len() {
			z.AddVec(z, r.Sample())
		}

		samples = append(samples, Sample{
			T:  t,
			Dt: h,
			X:  mat.VecDenseCopyOf(x),
			Z:  z,
		})
	}

	return samples, nil
}

// MarkovChain draws a sequence of steps modes of a Markov chain with
// row-stochastic transition matrix m starting in mode start.
// If src is nil the global source is used.
// It returns error if m is not square, if start is out of range or if steps is not positive.
func MarkovChain(m mat.Matrix, start, steps int, src xrand.Source) ([]int, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: invalid number of steps: %d", filter.ErrInvalidArgument, steps)
	}

	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: transition matrix: [%d x %d]", filter.ErrNotSquare, rows, cols)
	}
	if start < 0 || start >= rows {
		return nil, fmt.Errorf("%w: invalid start mode: %d", filter.ErrInvalidArgument, start)
	}

	modes := make([]int, steps)
	mode := start
	for i := range modes {
		if i > 0 {
			next, err := rand.RouletteDrawN(mat.Row(nil, mode, m), 1, src)
			if err != nil {
				return nil, err
			}
			mode = next[0]
		}
		modes[i] = mode
	}

	return modes, nil
}
