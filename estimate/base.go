package estimate

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Base is base estimate
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns base estimate given val with zero covariance.
// Nil val yields an empty estimate.
func NewBase(val mat.Vector) (*Base, error) {
	v := &mat.VecDense{}
	if val != nil {
		v.CloneFromVec(val)
	}

	return &Base{
		val: v,
		cov: newSym(v.Len()),
	}, nil
}

// NewBaseWithCov returns base estimate given value and covariance.
// It returns error if the dimensions of val and cov do not match.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	rv := val.Len()
	rc := cov.SymmetricDim()

	if rv != rc {
		return nil, fmt.Errorf("%w: val: %d, cov: %d x %d", filter.ErrWrongVecLen, rv, rc, rc)
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := newSym(rc)
	c.CopySym(cov)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// Snapshot returns the current estimate of filter f.
func Snapshot(f filter.Filter) (*Base, error) {
	return NewBaseWithCov(f.State(), f.Cov())
}

// newSym returns n x n zero matrix, or empty matrix if n is 0.
func newSym(n int) *mat.SymDense {
	if n == 0 {
		return &mat.SymDense{}
	}

	return mat.NewSymDense(n, nil)
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := newSym(b.cov.SymmetricDim())
	cov.CopySym(b.cov)

	return cov
}

// String implements the Stringer interface.
func (b *Base) String() string {
	if b.val.Len() == 0 {
		return "Base{\nVal=[]\nCov=[]\n}"
	}

	return fmt.Sprintf("Base{\nVal=%v\nCov=%v\n}", mat.Formatted(b.val.T()), mat.Formatted(b.cov, mat.Prefix("    "), mat.Squeeze()))
}
