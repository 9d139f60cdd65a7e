package state

import "gonum.org/v1/gonum/mat"

// Cartesian implements plain vector arithmetic.
type Cartesian struct{}

// Residual returns a - b
func (Cartesian) Residual(a, b mat.Vector) *mat.VecDense {
	r := mat.NewVecDense(a.Len(), nil)
	r.SubVec(a, b)

	return r
}

// Add returns a + b
func (Cartesian) Add(a, b mat.Vector) *mat.VecDense {
	r := mat.NewVecDense(a.Len(), nil)
	r.AddVec(a, b)

	return r
}

// Mean returns weighted mean of sigmas rows
func (Cartesian) Mean(sigmas mat.Matrix, w []float64) *mat.VecDense {
	rows, cols := sigmas.Dims()
	if rows != len(w) {
		panic(mat.ErrShape)
	}

	m := mat.NewVecDense(cols, nil)
	m.MulVec(sigmas.T(), mat.NewVecDense(len(w), w))

	return m
}
