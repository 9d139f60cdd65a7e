package ukf

import (
	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/state"
	"gonum.org/v1/gonum/mat"
)

// UnscentedTransform computes the mean and covariance of sigma points stored in rows of sigmas.
// The mean is calculated by arith using weights wm; the covariance is the wc-weighted sum of
// outer products of the residuals between each sigma point and the mean, plus additive noise.
// Nil noise and nil arith stand for zero noise and plain vector arithmetic, respectively.
// It panics if the weights or noise dimensions do not match sigmas.
func UnscentedTransform(sigmas mat.Matrix, wm, wc []float64, noise mat.Symmetric, arith filter.Arithmetic) (*mat.VecDense, *mat.SymDense) {
	rows, cols := sigmas.Dims()
	if len(wm) != rows || len(wc) != rows {
		panic(mat.ErrShape)
	}
	if noise != nil && noise.SymmetricDim() != 0 && noise.SymmetricDim() != cols {
		panic(mat.ErrShape)
	}

	if arith == nil {
		arith = state.Cartesian{}
	}

	mean := arith.Mean(sigmas, wm)

	cov := mat.NewSymDense(cols, nil)
	for k := 0; k < rows; k++ {
		d := arith.Residual(mat.NewVecDense(cols, mat.Row(nil, k, sigmas)), mean)
		cov.SymRankOne(cov, wc[k], d)
	}

	if noise != nil && noise.SymmetricDim() != 0 {
		cov.AddSym(cov, noise)
	}

	return mean, cov
}
