package ukf

import (
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/estimate"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/matrix"
	"gonum.org/v1/gonum/mat"
)

// Smooth runs Rauch-Tung-Striebel smoother over the filtered estimates est
// using the UKF state noise. dts[k] is the time step between est[k] and est[k+1].
// It returns the smoothed estimates in chronological order.
func (k *UKF) Smooth(est []filter.Estimate, dts []float64) ([]filter.Estimate, error) {
	return k.SmoothWithNoise(est, nil, dts)
}

// SmoothWithNoise runs Rauch-Tung-Striebel smoother over the filtered estimates est.
// If qs is not nil, qs[k] is used as state noise covariance of step k instead of the UKF state noise.
// The last smoothed estimate equals the last filtered one.
//
// It returns error if either of the following conditions is met:
//   - dts or qs lengths differ from the number of estimates
//   - an estimate has wrong dimension
//   - sigma points fail to be generated or propagated
//   - predicted covariance can not be inverted
func (k *UKF) SmoothWithNoise(est []filter.Estimate, qs []mat.Symmetric, dts []float64) ([]filter.Estimate, error) {
	n := len(est)
	if len(dts) != n {
		return nil, fmt.Errorf("%w: time steps: %d, estimates: %d", filter.ErrInvalidArgument, len(dts), n)
	}
	if qs != nil && len(qs) != n {
		return nil, fmt.Errorf("%w: noise covariances: %d, estimates: %d", filter.ErrInvalidArgument, len(qs), n)
	}

	nx, _ := k.m.Dims()

	xs := make([]*mat.VecDense, n)
	ps := make([]*mat.SymDense, n)
	for i, e := range est {
		if e.Val().Len() != nx || e.Cov().SymmetricDim() != nx {
			return nil, fmt.Errorf("%w: estimate %d: val: %d, cov: %d", filter.ErrWrongVecLen, i, e.Val().Len(), e.Cov().SymmetricDim())
		}
		xs[i] = mat.VecDenseCopyOf(e.Val())
		ps[i] = matrix.SymOrZero(e.Cov(), nx)
	}

	sx := make([]*mat.VecDense, n)
	sp := make([]*mat.SymDense, n)
	if n > 0 {
		sx[n-1] = xs[n-1]
		sp[n-1] = ps[n-1]
	}

	wm, wc := k.sp.Wm(), k.sp.Wc()

	for i := n - 2; i >= 0; i-- {
		sigmas, err := k.sp.SigmaPoints(xs[i], ps[i])
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		sigmasF, err := k.propagate(sigmas, dts[i])
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		q := kalman.NoiseCov(k.q, nx)
		if qs != nil {
			q = matrix.SymOrZero(qs[i], nx)
		}

		xb, pb := UnscentedTransform(sigmasF, wm, wc, q, k.xArith)

		pxb := mat.NewDense(nx, nx, nil)
		for j, w := range wc {
			dx := k.xArith.Residual(sigmas.RowView(j), xs[i])
			db := k.xArith.Residual(sigmasF.RowView(j), xb)
			pxb.Add(pxb, matrix.Outer(w, dx, db))
		}

		gain, err := kalman.Gain(pxb, pb)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		res := k.xArith.Residual(sx[i+1], xb)
		corr := mat.NewVecDense(nx, nil)
		corr.MulVec(gain, res)
		sx[i] = k.xArith.Add(xs[i], corr)

		// P + K*(Ps - Pb)*K'
		d := mat.NewDense(nx, nx, nil)
		d.Sub(sp[i+1], pb)
		kd := &mat.Dense{}
		kd.Mul(gain, d)
		kdk := &mat.Dense{}
		kdk.Mul(kd, gain.T())
		kdk.Add(ps[i], kdk)

		sp[i] = matrix.Symmetrize(kdk)
	}

	out := make([]filter.Estimate, n)
	for i := range out {
		e, err := estimate.NewBaseWithCov(sx[i], sp[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}

	return out, nil
}
