// Package kalman holds the pieces shared by the Kalman filter family.
package kalman

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/gauss"
	"github.com/milosgajdos/go-fusion/matrix"
	mx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// filter.Filter is dynamical system filter
	filter.Filter
	// Gain returns Kalman filter gain
	Gain() mat.Matrix
	// Innovation returns the last measurement residual
	Innovation() mat.Vector
	// InnovationCov returns the last innovation covariance
	InnovationCov() mat.Symmetric
}

// NoiseCov returns the covariance of noise n as n x n matrix.
// Nil noise and noise.None yield zero matrix.
// It panics if the noise covariance is not empty and its dimension differs from dim.
func NoiseCov(n filter.Noise, dim int) *mat.SymDense {
	if n == nil {
		return mat.NewSymDense(dim, nil)
	}

	return matrix.SymOrZero(n.Cov(), dim)
}

// CheckNoise returns error if noise n is neither nil, empty nor dim-dimensional.
func CheckNoise(n filter.Noise, dim int, name string) error {
	if n == nil {
		return nil
	}
	if d := n.Cov().SymmetricDim(); d != 0 && d != dim {
		return fmt.Errorf("%w: invalid %s noise dimension: %d != %d", filter.ErrInvalidArgument, name, d, dim)
	}

	return nil
}

// LogLikelihood returns the log-likelihood of innovation y given innovation covariance s.
// Singular s is allowed.
func LogLikelihood(y mat.Vector, s mat.Symmetric) (float64, error) {
	if y == nil || s == nil || y.Len() == 0 {
		return 0, fmt.Errorf("%w: no measurement has been processed", filter.ErrInvalidArgument)
	}

	return gauss.LogPDF(y, mat.NewVecDense(y.Len(), nil), s, true)
}

// Likelihood returns the likelihood of innovation y given innovation covariance s.
// The result is clamped to the smallest positive float64 so it never collapses to zero.
func Likelihood(y mat.Vector, s mat.Symmetric) (float64, error) {
	l, err := LogLikelihood(y, s)
	if err != nil {
		return 0, err
	}

	lh := math.Exp(l)
	if lh == 0 {
		filter.Logger().Debug("likelihood underflow", "loglikelihood", l)
		lh = math.SmallestNonzeroFloat64
	}

	return lh, nil
}

// Gain returns Kalman gain pxz * inv(s) where s is innovation (or predicted state) covariance.
// It returns error if s can not be inverted.
func Gain(pxz mat.Matrix, s mat.Symmetric) (*mat.Dense, error) {
	sInv := &mat.Dense{}
	if err := sInv.Inverse(s); err != nil {
		return nil, fmt.Errorf("%w: failed to invert covariance: %v", filter.ErrDecomposition, err)
	}

	k := &mat.Dense{}
	k.Mul(pxz, sInv)

	return k, nil
}

// Joseph returns the Joseph form covariance update (I-KH)*P*(I-KH)' + K*R*K'.
func Joseph(p mat.Symmetric, k, h mat.Matrix, r mat.Symmetric) *mat.SymDense {
	n := p.SymmetricDim()
	eye, _ := mx.NewDenseValIdentity(n, 1.0)

	a := &mat.Dense{}
	// K*H
	a.Mul(k, h)
	// I - K*H
	a.Sub(eye, a)

	ap := &mat.Dense{}
	ap.Mul(a, p)
	apa := &mat.Dense{}
	apa.Mul(ap, a.T())

	kr := &mat.Dense{}
	kr.Mul(k, r)
	krk := &mat.Dense{}
	krk.Mul(kr, k.T())

	apa.Add(apa, krk)

	return matrix.Symmetrize(apa)
}

// Propagate returns F*P*F' + Q.
func Propagate(f mat.Matrix, p, q mat.Symmetric) *mat.SymDense {
	fp := &mat.Dense{}
	fp.Mul(f, p)
	fpf := &mat.Dense{}
	fpf.Mul(fp, f.T())
	fpf.Add(fpf, q)

	return matrix.Symmetrize(fpf)
}

// InnovationCov returns H*P*H' + R.
func InnovationCov(h mat.Matrix, p, r mat.Symmetric) *mat.SymDense {
	return Propagate(h, p, r)
}

// Jacobian approximates the Jacobian of fn at x using central differences.
// rows is the length of the fn output.
// Errors returned by fn are captured and returned.
func Jacobian(rows int, fn func(x mat.Vector) (mat.Vector, error), x mat.Vector) (*mat.Dense, error) {
	var fnErr error
	jac := mat.NewDense(rows, x.Len(), nil)

	fd.Jacobian(jac, func(y, xNow []float64) {
		if fnErr != nil {
			return
		}
		out, err := fn(mat.NewVecDense(len(xNow), xNow))
		if err != nil {
			fnErr = err
			return
		}
		if out.Len() != len(y) {
			panic(mat.ErrShape)
		}
		for i := range y {
			y[i] = out.AtVec(i)
		}
	}, mat.Col(nil, 0, x), &fd.JacobianSettings{
		Formula: fd.Central,
	})

	if fnErr != nil {
		return nil, fnErr
	}

	return jac, nil
}
