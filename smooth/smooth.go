// Package smooth implements the backward pass shared by the Rauch-Tung-Striebel smoothers.
package smooth

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/estimate"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/matrix"
	"gonum.org/v1/gonum/mat"
)

// Linearizer returns the state transition matrix of a system linearized around x
// together with x propagated dt time units forward.
type Linearizer func(x mat.Vector, dt float64) (mat.Matrix, mat.Vector, error)

// RTS runs Rauch-Tung-Striebel backward pass over the filtered estimates est.
// dts[k] is the time step between est[k] and est[k+1], q is state noise covariance
// and lin linearizes the system around each estimate.
// The returned estimates are in chronological order; the last one equals the last filtered estimate.
// It returns error if dts length differs from the number of estimates, if the estimates
// have inconsistent dimensions or if the predicted covariance can not be inverted.
func RTS(est []filter.Estimate, dts []float64, q mat.Symmetric, lin Linearizer) ([]filter.Estimate, error) {
	n := len(est)
	if len(dts) != n {
		return nil, fmt.Errorf("%w: time steps: %d, estimates: %d", filter.ErrInvalidArgument, len(dts), n)
	}
	if n == 0 {
		return []filter.Estimate{}, nil
	}

	nx := est[0].Val().Len()
	q = matrix.SymOrZero(q, nx)

	sx := make([]filter.Estimate, n)
	last, err := estimate.NewBaseWithCov(est[n-1].Val(), est[n-1].Cov())
	if err != nil {
		return nil, err
	}
	sx[n-1] = last

	for k := n - 2; k >= 0; k-- {
		xk, pk := est[k].Val(), est[k].Cov()
		if xk.Len() != nx || pk.SymmetricDim() != nx {
			return nil, fmt.Errorf("%w: estimate %d: val: %d, cov: %d", filter.ErrWrongVecLen, k, xk.Len(), pk.SymmetricDim())
		}

		f, xp, err := lin(xk, dts[k])
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		// predicted covariance
		pp := kalman.Propagate(f, pk, q)

		// smoother gain: Pk*F'*inv(Pp)
		pft := &mat.Dense{}
		pft.Mul(pk, f.T())
		c, err := kalman.Gain(pft, pp)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		// xk + C*(xs[k+1] - xp)
		d := mat.NewVecDense(nx, nil)
		d.SubVec(sx[k+1].Val(), xp)
		x := mat.NewVecDense(nx, nil)
		x.MulVec(c, d)
		x.AddVec(xk, x)

		// Pk + C*(Ps[k+1] - Pp)*C'
		dp := mat.NewDense(nx, nx, nil)
		dp.Sub(sx[k+1].Cov(), pp)
		cd := &mat.Dense{}
		cd.Mul(c, dp)
		cdc := &mat.Dense{}
		cdc.Mul(cd, c.T())
		cdc.Add(pk, cdc)

		e, err := estimate.NewBaseWithCov(x, matrix.Symmetrize(cdc))
		if err != nil {
			return nil, err
		}
		sx[k] = e
	}

	return sx, nil
}
