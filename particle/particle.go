// Package particle defines sequential Monte Carlo filters.
package particle

import (
	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// Particle is Particle Filter
type Particle interface {
	// filter.Filter is dynamical system filter
	filter.Filter
	// Particles returns filter particles stored in columns
	Particles() mat.Matrix
	// Weights returns particle weights
	Weights() mat.Vector
	// Neff returns the effective number of particles
	Neff() float64
	// Resample draws new particles in proportion to their weights
	Resample(alpha float64) error
}
