// Package rand draws random samples used by noise models and simulations.
package rand

import (
	"fmt"
	"math"
	"sort"

	filter "github.com/milosgajdos/go-fusion"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WithCovN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance cov.
// It returns matrix which contains the randomly generated samples stored in its columns.
// cov may be singular. If src is nil the global source is used.
// It fails with error if n is non-positive or if SVD factorization of cov fails.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid number of samples requested: %d", filter.ErrInvalidArgument, n)
	}

	u, err := CovFactor(cov)
	if err != nil {
		return nil, err
	}

	return WithFactorN(u, n, src)
}

// CovFactor returns matrix U such that U*U' == cov.
// U is computed from the SVD of cov, which copes with (almost) singular cov
// where Cholesky would fail.
// It returns error if cov contains NaN or infinite values or if the factorization fails.
func CovFactor(cov mat.Symmetric) (*mat.Dense, error) {
	n := cov.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := cov.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: covariance element [%d, %d] is %v", filter.ErrInvalidArgument, i, j, v)
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("%w: SVD factorization failed", filter.ErrDecomposition)
	}

	u := new(mat.Dense)
	svd.UTo(u)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	u.Mul(u, mat.NewDiagDense(len(vals), vals))

	return u, nil
}

// WithFactorN draws n random samples from a zero-mean Normal distribution with covariance U*U'.
// Samples are stored in the columns of the returned matrix. If src is nil the global source is used.
// It fails with error if n is non-positive or if u is not square.
func WithFactorN(u mat.Matrix, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid number of samples requested: %d", filter.ErrInvalidArgument, n)
	}

	rows, cols := u.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: covariance factor: [%d x %d]", filter.ErrNotSquare, rows, cols)
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = norm.Rand()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(u, samples)

	return samples, nil
}

// RouletteDrawN draws n numbers randomly from a probability mass function (PMF) defined by weights in p.
// RouletteDrawN implements the Roulette Wheel Draw a.k.a. Fitness Proportionate Selection:
// - https://en.wikipedia.org/wiki/Fitness_proportionate_selection
// - http://www.keithschwarz.com/darts-dice-coins/
// It returns a slice of n indices into the vector p. If src is nil the global source is used.
// It fails with error if p is empty or if its weights do not sum to a positive number.
func RouletteDrawN(p []float64, n int, src rand.Source) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: invalid probability weights: %v", filter.ErrInvalidArgument, p)
	}

	// cdf is sorted in ascending order
	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)
	if cdf[len(cdf)-1] <= 0 {
		return nil, fmt.Errorf("%w: probability weights sum to %g", filter.ErrInvalidArgument, cdf[len(cdf)-1])
	}

	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}
	indices := make([]int, n)
	for i := range indices {
		// scale by the largest CDF value instead of normalizing to [0,1)
		val := unif.Rand() * cdf[len(cdf)-1]
		// smallest index i such that cdf[i] > val
		indices[i] = sort.Search(len(cdf), func(i int) bool { return cdf[i] > val })
	}

	return indices, nil
}
