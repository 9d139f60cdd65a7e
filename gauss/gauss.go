// Package gauss implements multivariate Gaussian density evaluation which tolerates
// singular (positive semi-definite) covariance matrices.
package gauss

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Cond is the relative eigenvalue cutoff used to determine numerical rank.
// Eigenvalues smaller than Cond times the largest absolute eigenvalue are treated as zero.
var Cond = 1e6 * 2.220446049250313e-16

var log2Pi = math.Log(2 * math.Pi)

// PSD is a symmetric positive semi-definite matrix factorized via its eigen-decomposition.
type PSD struct {
	// U is the pseudo square root of the pseudo-inverse: Pinv = U*U'
	U *mat.Dense
	// Rank is the numerical rank of the matrix
	Rank int
	// LogPdet is the log of the pseudo-determinant
	LogPdet float64
}

// NewPSD factorizes the covariance matrix cov.
// It returns error if cov is not square, if it has a significantly negative eigenvalue,
// or if it is singular and allowSingular is false.
func NewPSD(cov mat.Matrix, allowSingular bool) (*PSD, error) {
	r, c := cov.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: [%d x %d]", filter.ErrNotSquare, r, c)
	}

	sym, ok := cov.(mat.Symmetric)
	if !ok {
		s := mat.NewSymDense(r, nil)
		for i := 0; i < r; i++ {
			for j := i; j < r; j++ {
				s.SetSym(i, j, cov.At(i, j))
			}
		}
		sym = s
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition did not converge", filter.ErrDecomposition)
	}
	vals := eig.Values(nil)
	vecs := &mat.Dense{}
	eig.VectorsTo(vecs)

	maxAbs := 0.0
	for _, v := range vals {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	eps := Cond * maxAbs

	if len(vals) > 0 && floats.Min(vals) < -eps {
		return nil, fmt.Errorf("%w: min eigenvalue %g", filter.ErrNotPositiveSemiDefinite, floats.Min(vals))
	}

	rank := 0
	logPdet := 0.0
	sqrtInv := make([]float64, len(vals))
	for i, v := range vals {
		if v > eps {
			rank++
			logPdet += math.Log(v)
			sqrtInv[i] = math.Sqrt(1 / v)
		}
	}

	if rank < len(vals) && !allowSingular {
		return nil, fmt.Errorf("%w: rank %d < %d", filter.ErrSingularMatrix, rank, len(vals))
	}

	u := &mat.Dense{}
	if r > 0 {
		u.Mul(vecs, mat.NewDiagDense(len(sqrtInv), sqrtInv))
	}

	return &PSD{
		U:       u,
		Rank:    rank,
		LogPdet: logPdet,
	}, nil
}

// Pinv returns the pseudo-inverse U*U' of the factorized matrix.
func (p *PSD) Pinv() *mat.SymDense {
	r, _ := p.U.Dims()
	pinv := mat.NewSymDense(r, nil)
	if r > 0 {
		pinv.SymOuterK(1, p.U)
	}

	return pinv
}

// Mahalanobis returns the squared Mahalanobis distance of dev from zero.
func (p *PSD) Mahalanobis(dev mat.Vector) float64 {
	r, _ := p.U.Dims()
	if r == 0 {
		return 0
	}
	m := mat.NewVecDense(r, nil)
	m.MulVec(p.U.T(), dev)

	return mat.Dot(m, m)
}

// LogPDF returns the log of the multivariate normal density with mean mean and covariance cov at x.
// It returns error if the dimensions of x, mean and cov do not agree, or if cov can not be factorized.
func LogPDF(x, mean mat.Vector, cov mat.Matrix, allowSingular bool) (float64, error) {
	r, c := cov.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: [%d x %d]", filter.ErrNotSquare, r, c)
	}
	if mean.Len() != r || x.Len() != r {
		return 0, fmt.Errorf("%w: x: %d, mean: %d, cov: %d", filter.ErrWrongVecLen, x.Len(), mean.Len(), r)
	}

	psd, err := NewPSD(cov, allowSingular)
	if err != nil {
		return 0, err
	}

	dev := mat.NewVecDense(r, nil)
	dev.SubVec(x, mean)

	return -0.5 * (float64(psd.Rank)*log2Pi + psd.LogPdet + psd.Mahalanobis(dev)), nil
}

// PDF returns the multivariate normal density with mean mean and covariance cov at x.
func PDF(x, mean mat.Vector, cov mat.Matrix, allowSingular bool) (float64, error) {
	l, err := LogPDF(x, mean, cov, allowSingular)
	if err != nil {
		return 0, err
	}

	return math.Exp(l), nil
}
