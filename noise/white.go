package noise

import (
	"fmt"
	"time"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/rand"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// White is zero-mean white noise with a positive semi-definite covariance.
// Unlike Gaussian, the covariance may be singular, which is the case for
// discretized white noise acceleration models.
type White struct {
	cov *mat.SymDense
	// u is covariance factor: u*u' == cov
	u   *mat.Dense
	src xrand.Source
}

// NewWhite creates new White noise with covariance cov and returns it.
// It returns error if cov is empty or if it can not be factorized.
func NewWhite(cov mat.Symmetric) (*White, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty covariance", filter.ErrInvalidArgument)
	}

	c := mat.NewSymDense(n, nil)
	c.CopySym(cov)

	u, err := rand.CovFactor(c)
	if err != nil {
		return nil, err
	}

	return &White{
		cov: c,
		u:   u,
		src: xrand.NewSource(uint64(time.Now().UnixNano())),
	}, nil
}

// NewDiscreteWhite creates White noise with the covariance built by DiscreteWhite.
func NewDiscreteWhite(dim int, dt, variance float64, blockSize int) (*White, error) {
	cov, err := DiscreteWhite(dim, dt, variance, blockSize)
	if err != nil {
		return nil, err
	}

	return NewWhite(cov)
}

// Sample draws a sample of White noise and returns it.
// It logs the error and returns zero vector if the sample can not be drawn.
func (w *White) Sample() mat.Vector {
	n := w.cov.SymmetricDim()
	s, err := rand.WithFactorN(w.u, 1, w.src)
	if err != nil {
		filter.Logger().Error("failed to sample white noise", "err", err)
		return mat.NewVecDense(n, nil)
	}

	return mat.VecDenseCopyOf(s.ColView(0))
}

// Cov returns a copy of the noise covariance.
func (w *White) Cov() mat.Symmetric {
	cov := mat.NewSymDense(w.cov.SymmetricDim(), nil)
	cov.CopySym(w.cov)

	return cov
}

// Mean returns zero mean.
func (w *White) Mean() []float64 {
	return make([]float64, w.cov.SymmetricDim())
}

// Reset reseeds the noise source.
func (w *White) Reset() {
	w.src = xrand.NewSource(uint64(time.Now().UnixNano()))
}

// String implements the Stringer interface.
func (w *White) String() string {
	return fmt.Sprintf("White{\nCov=%v\n}", mat.Formatted(w.cov, mat.Prefix("    "), mat.Squeeze()))
}
