package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// ColSums returns a slice containing m column sums.
// It panics if m is nil.
func ColSums(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	sum := make([]float64, cols)

	for i := 0; i < cols; i++ {
		sum[i] = mat.Sum(m.ColView(i))
	}

	return sum
}

// ToSym copies the upper triangle of the square matrix m into a new symmetric matrix.
// It panics if m is not square.
func ToSym(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrShape)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}

	return s
}

// Symmetrize returns (m + m')/2 as a symmetric matrix.
// It panics if m is not square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrShape)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s
}

// Outer returns the outer product alpha * x * y'.
func Outer(alpha float64, x, y mat.Vector) *mat.Dense {
	o := mat.NewDense(x.Len(), y.Len(), nil)
	o.Outer(alpha, x, y)

	return o
}

// SymOrZero returns a copy of s, or a zero n x n matrix if s is nil or empty.
// It panics if s is non-empty and its dimension differs from n.
func SymOrZero(s mat.Symmetric, n int) *mat.SymDense {
	out := mat.NewSymDense(n, nil)
	if s == nil || s.SymmetricDim() == 0 {
		return out
	}
	if s.SymmetricDim() != n {
		panic(mat.ErrShape)
	}
	out.CopySym(s)

	return out
}
