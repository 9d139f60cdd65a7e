package filter

import "errors"

var (
	// ErrDecomposition is returned when a matrix factorization or inversion fails
	ErrDecomposition = errors.New("matrix decomposition failed")
	// ErrNotPositiveSemiDefinite is returned when a covariance has a negative eigenvalue
	ErrNotPositiveSemiDefinite = errors.New("matrix is not positive semi-definite")
	// ErrSingularMatrix is returned when a singular covariance is not allowed
	ErrSingularMatrix = errors.New("singular matrix")
	// ErrWrongVecLen is returned when vector length does not match covariance dimension
	ErrWrongVecLen = errors.New("wrong vector length")
	// ErrNotSquare is returned when a covariance matrix is not square
	ErrNotSquare = errors.New("matrix is not square")
	// ErrInvalidArgument is returned for unsupported parameters
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotEnoughFilters is returned when an IMM bank gets fewer than two filters
	ErrNotEnoughFilters = errors.New("not enough filters")
	// ErrDifferentFilterShapes is returned when IMM filters differ in state dimension
	ErrDifferentFilterShapes = errors.New("filters have different state dimensions")
)
