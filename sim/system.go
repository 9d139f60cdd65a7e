package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// the system (A) and observation (C) matrices of modern control theory.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
}

func newSystem(A, C *mat.Dense) (System, error) {
	if A == nil || C == nil {
		return System{}, fmt.Errorf("%w: system and output matrices must be defined for a model", filter.ErrInvalidArgument)
	}

	ra, ca := A.Dims()
	if ra != ca {
		return System{}, fmt.Errorf("%w: system matrix: [%d x %d]", filter.ErrNotSquare, ra, ca)
	}

	if _, cc := C.Dims(); cc != ca {
		return System{}, fmt.Errorf("%w: output matrix has %d columns, expected %d", filter.ErrInvalidArgument, cc, ca)
	}

	return System{A: mat.DenseCopyOf(A), C: mat.DenseCopyOf(C)}, nil
}

// Dims returns internal state length (nx) and output length (ny).
func (s System) Dims() (nx, ny int) {
	nx, _ = s.A.Dims()
	ny, _ = s.C.Dims()

	return nx, ny
}

// Observation returns observation matrix `C`
func (s System) Observation() mat.Matrix {
	return s.C
}

// Observe returns external/observable state given internal state x.
func (s System) Observe(x mat.Vector) (mat.Vector, error) {
	nx, ny := s.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("%w: invalid state vector: %d != %d", filter.ErrWrongVecLen, x.Len(), nx)
	}

	out := mat.NewVecDense(ny, nil)
	out.MulVec(s.C, x)

	return out, nil
}
