// Package state provides named state vector layouts and the vector arithmetic
// used by sigma point filters. Angular components are wrapped to [-Pi, Pi)
// and averaged on the unit circle, Cartesian components use plain arithmetic.
package state

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Kind is the kind of state vector component
type Kind int

const (
	// Linear is a Cartesian component
	Linear Kind = iota
	// Angle is an angular component in radians
	Angle
)

// String implements the Stringer interface.
func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Angle:
		return "angle"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is a named state vector component
type Field struct {
	// Name is the field name
	Name string
	// Kind is the field kind
	Kind Kind
}

// Layout maps field names to state vector offsets.
type Layout struct {
	fields []Field
	index  map[string]int
}

// NewLayout creates new Layout from fields and returns it.
// Fields are assigned offsets in the order they are given.
// It returns error if no fields are given or if any name is empty or duplicated.
func NewLayout(fields ...Field) (*Layout, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty layout", filter.ErrInvalidArgument)
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", filter.ErrInvalidArgument, i)
		}
		if _, ok := index[f.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate field %q", filter.ErrInvalidArgument, f.Name)
		}
		if f.Kind != Linear && f.Kind != Angle {
			return nil, fmt.Errorf("%w: field %q has unknown kind %v", filter.ErrInvalidArgument, f.Name, f.Kind)
		}
		index[f.Name] = i
	}

	fs := make([]Field, len(fields))
	copy(fs, fields)

	return &Layout{
		fields: fs,
		index:  index,
	}, nil
}

// Dim returns state vector dimension
func (l *Layout) Dim() int {
	return len(l.fields)
}

// Names returns field names in offset order
func (l *Layout) Names() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.Name
	}

	return names
}

// Index returns the offset of the named field.
// It returns error if there is no such field.
func (l *Layout) Index(name string) (int, error) {
	i, ok := l.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: unknown field %q", filter.ErrInvalidArgument, name)
	}

	return i, nil
}

// MustIndex returns the offset of the named field. It panics if there is no such field.
func (l *Layout) MustIndex(name string) int {
	i, err := l.Index(name)
	if err != nil {
		panic(err)
	}

	return i
}

// Get returns the value of the named field of x.
func (l *Layout) Get(x mat.Vector, name string) (float64, error) {
	i, err := l.Index(name)
	if err != nil {
		return 0, err
	}

	return x.AtVec(i), nil
}

// Set sets the value of the named field of x.
func (l *Layout) Set(x *mat.VecDense, name string, v float64) error {
	i, err := l.Index(name)
	if err != nil {
		return err
	}
	x.SetVec(i, v)

	return nil
}

// Residual returns a - b, wrapping angular components to [-Pi, Pi).
// It panics if either a or b length differs from layout dimension.
func (l *Layout) Residual(a, b mat.Vector) *mat.VecDense {
	l.checkLen(a)
	l.checkLen(b)

	r := mat.NewVecDense(len(l.fields), nil)
	for i, f := range l.fields {
		d := a.AtVec(i) - b.AtVec(i)
		if f.Kind == Angle {
			d = NormalizeAngle(d)
		}
		r.SetVec(i, d)
	}

	return r
}

// Add returns a + b, wrapping angular components to [-Pi, Pi).
// It panics if either a or b length differs from layout dimension.
func (l *Layout) Add(a, b mat.Vector) *mat.VecDense {
	l.checkLen(a)
	l.checkLen(b)

	r := mat.NewVecDense(len(l.fields), nil)
	for i, f := range l.fields {
		s := a.AtVec(i) + b.AtVec(i)
		if f.Kind == Angle {
			s = NormalizeAngle(s)
		}
		r.SetVec(i, s)
	}

	return r
}

// Mean returns weighted mean of sigmas rows.
// Angular components are averaged as atan2 of weighted sines and cosines.
func (l *Layout) Mean(sigmas mat.Matrix, w []float64) *mat.VecDense {
	rows, cols := sigmas.Dims()
	if cols != len(l.fields) || rows != len(w) {
		panic(mat.ErrShape)
	}

	m := mat.NewVecDense(cols, nil)
	for j, f := range l.fields {
		switch f.Kind {
		case Angle:
			var sin, cos float64
			for i := 0; i < rows; i++ {
				sin += w[i] * math.Sin(sigmas.At(i, j))
				cos += w[i] * math.Cos(sigmas.At(i, j))
			}
			m.SetVec(j, math.Atan2(sin, cos))
		default:
			var s float64
			for i := 0; i < rows; i++ {
				s += w[i] * sigmas.At(i, j)
			}
			m.SetVec(j, s)
		}
	}

	return m
}

func (l *Layout) checkLen(v mat.Vector) {
	if v.Len() != len(l.fields) {
		panic(mat.ErrShape)
	}
}

// NormalizeAngle wraps angle a to [-Pi, Pi).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}

	return a - math.Pi
}
