package ukf

import (
	"errors"
	"math"
	"os"
	"testing"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/estimate"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/kalman/kf"
	"github.com/milosgajdos/go-fusion/noise"
	"github.com/milosgajdos/go-fusion/sigma"
	"github.com/milosgajdos/go-fusion/sim"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	okModel *sim.Discrete
	ic      *sim.InitCond
	q       filter.Noise
	r       filter.Noise
	sp      *sigma.MerweScaled
)

func setup() {
	A := mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	C := mat.NewDense(1, 2, []float64{1.0, 0.0})
	okModel, _ = sim.NewDiscrete(A, C)

	initState := mat.NewVecDense(2, []float64{1.0, 3.0})
	initCov := mat.NewSymDense(2, []float64{0.25, 0, 0, 0.25})
	ic = sim.NewInitCond(initState, initCov)

	q, _ = noise.NewGaussian([]float64{0, 0}, initCov)
	r, _ = noise.NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{0.25}))

	sp, _ = sigma.NewMerweScaled(2, 0.1, 2.0, 1.0, nil)
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestUnscentedTransform(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(2, []float64{0.0, 0.0})
	p := mat.NewSymDense(2, []float64{1.0, 0.1, 0.1, 1.0})

	sigmas, err := sp.SigmaPoints(x, p)
	assert.NoError(err)

	mean, cov := UnscentedTransform(sigmas, sp.Wm(), sp.Wc(), nil, nil)
	assert.True(mat.EqualApprox(x, mean, 1e-6))
	assert.True(mat.EqualApprox(p, cov, 1e-6))

	// additive noise
	n := mat.NewSymDense(2, []float64{0.5, 0, 0, 0.5})
	_, cov = UnscentedTransform(sigmas, sp.Wm(), sp.Wc(), n, nil)
	exp := mat.NewSymDense(2, []float64{1.5, 0.1, 0.1, 1.5})
	assert.True(mat.EqualApprox(exp, cov, 1e-6))

	assert.Panics(func() { UnscentedTransform(sigmas, []float64{1.0}, sp.Wc(), nil, nil) })
	assert.Panics(func() { UnscentedTransform(sigmas, sp.Wm(), sp.Wc(), mat.NewSymDense(3, nil), nil) })
}

func TestUKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r, sp)
	assert.NotNil(f)
	assert.NoError(err)

	var _ kalman.Kalman = f
	var _ filter.Smoother = f

	// sigma points of wrong dimension
	j, _ := sigma.NewJulier(3, 1.0, nil)
	f, err = New(okModel, ic, q, r, j)
	assert.Nil(f)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	f, err = New(okModel, ic, q, r, nil)
	assert.Nil(f)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	// invalid noise dimensions
	_q, _ := noise.NewZero(20)
	f, err = New(okModel, ic, _q, r, sp)
	assert.Nil(f)
	assert.Error(err)

	f, err = New(okModel, ic, q, _q, sp)
	assert.Nil(f)
	assert.Error(err)

	// invalid initial condition
	_ic := sim.NewInitCond(mat.NewVecDense(3, nil), mat.NewSymDense(3, nil))
	f, err = New(okModel, _ic, q, r, sp)
	assert.Nil(f)
	assert.True(errors.Is(err, filter.ErrWrongVecLen))
}

func TestUKFMatchesKF(t *testing.T) {
	assert := assert.New(t)

	j, err := sigma.NewJulier(2, 1.0, nil)
	assert.NoError(err)

	for _, points := range []sigma.Points{sp, j} {
		u, err := New(okModel, ic, q, r, points)
		assert.NoError(err)

		k, err := kf.New(okModel, ic, q, r)
		assert.NoError(err)

		for _, meas := range []float64{1.5, 2.7, 4.1, 5.0} {
			assert.NoError(u.Predict(1.0))
			assert.NoError(k.Predict(1.0))
			assert.True(mat.EqualApprox(k.State(), u.State(), 1e-6))
			assert.True(mat.EqualApprox(k.Cov(), u.Cov(), 1e-6))

			zm := mat.NewVecDense(1, []float64{meas})
			assert.NoError(u.Update(zm))
			assert.NoError(k.Update(zm))
			assert.True(mat.EqualApprox(k.State(), u.State(), 1e-6))
			assert.True(mat.EqualApprox(k.Cov(), u.Cov(), 1e-6))
			assert.True(mat.EqualApprox(k.Innovation(), u.Innovation(), 1e-6))
			assert.True(mat.EqualApprox(k.InnovationCov(), u.InnovationCov(), 1e-6))

			kl, err := k.LogLikelihood()
			assert.NoError(err)
			ul, err := u.LogLikelihood()
			assert.NoError(err)
			assert.InDelta(kl, ul, 1e-6)
		}
	}
}

func TestUKFUpdate(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r, sp)
	assert.NoError(err)

	// no measurement processed yet
	_, err = f.Likelihood()
	assert.True(errors.Is(err, filter.ErrInvalidArgument))
	assert.Equal(0, f.Innovation().Len())

	// update without prior predict uses sigma points of the initial condition
	assert.NoError(f.Update(mat.NewVecDense(1, []float64{1.5})))
	assert.InDelta(1.5, f.Prediction().AtVec(0)+f.Innovation().AtVec(0), 1e-9)

	l, err := f.Likelihood()
	assert.NoError(err)
	assert.True(l > 0)

	assert.Panics(func() { f.Update(mat.NewVecDense(3, nil)) })
}

func TestUKFSetState(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r, sp)
	assert.NoError(err)
	assert.NoError(f.Predict(1.0))

	x := mat.NewVecDense(2, []float64{5.0, 6.0})
	cov := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	assert.NoError(f.SetState(x, cov))
	assert.True(mat.Equal(x, f.State()))
	assert.True(mat.Equal(cov, f.Cov()))

	// update uses the new state rather than stale sigma points
	assert.NoError(f.Update(mat.NewVecDense(1, []float64{5.0})))
	assert.InDelta(5.0, f.Prediction().AtVec(0), 1e-9)

	assert.Error(f.SetState(mat.NewVecDense(3, nil), cov))

	assert.Equal(okModel, f.Model())
	assert.Equal(q, f.StateNoise())
	assert.Equal(r, f.OutputNoise())
	assert.Equal(sp, f.SigmaPoints())
}

func TestUKFPendulum(t *testing.T) {
	assert := assert.New(t)

	p, err := sim.NewPendulum(0.1)
	assert.NoError(err)

	samples, err := sim.Simulate(p, mat.NewVecDense(3, []float64{0.5, 0.0, 1.5}), 0.01, 300, nil)
	assert.NoError(err)

	points, err := sigma.NewMerweScaled(3, 0.1, 2.0, 0.0, p.Layout())
	assert.NoError(err)

	init := sim.NewInitCond(
		mat.NewVecDense(3, []float64{0.4, 0.0, 1.0}),
		mat.NewSymDense(3, []float64{0.1, 0, 0, 0, 0.1, 0, 0, 0, 0.5}),
	)
	pq, _ := noise.NewGaussian([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{1e-6, 0, 0, 0, 1e-6, 0, 0, 0, 1e-6}))
	pr, _ := noise.NewGaussian([]float64{0, 0, 0}, mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.001}))

	f, err := New(p, init, pq, pr, points, WithStateArithmetic(p.Layout()))
	assert.NoError(err)

	for _, s := range samples[1:] {
		assert.NoError(f.Predict(s.Dt))
		assert.NoError(f.Update(s.Z))
	}

	last := samples[len(samples)-1].X
	x := f.State()
	assert.Less(math.Abs(p.Layout().Residual(x, last).AtVec(0)), 0.1)
	assert.Less(math.Abs(x.AtVec(1)-last.AtVec(1)), 0.1)

	ll, err := f.LogLikelihood()
	assert.NoError(err)
	assert.False(math.IsNaN(ll))
}

func TestUKFSmooth(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r, sp)
	assert.NoError(err)

	meas := []float64{1.5, 2.7, 4.1, 5.0, 6.2}
	est := make([]filter.Estimate, 0, len(meas))
	dts := make([]float64, 0, len(meas))
	for _, m := range meas {
		assert.NoError(f.Predict(1.0))
		assert.NoError(f.Update(mat.NewVecDense(1, []float64{m})))
		e, err := estimate.Snapshot(f)
		assert.NoError(err)
		est = append(est, e)
		dts = append(dts, 1.0)
	}

	smoothed, err := f.Smooth(est, dts)
	assert.NoError(err)
	assert.Len(smoothed, len(est))

	last := len(est) - 1
	assert.True(mat.Equal(est[last].Val(), smoothed[last].Val()))
	assert.True(mat.Equal(est[last].Cov(), smoothed[last].Cov()))

	// smoothing never increases the uncertainty of the filtered estimates
	for i := range est {
		for j := 0; j < 2; j++ {
			assert.LessOrEqual(smoothed[i].Cov().At(j, j), est[i].Cov().At(j, j)+1e-9)
		}
	}

	// explicit noise equal to the default one yields the same result
	qs := make([]mat.Symmetric, len(est))
	for i := range qs {
		qs[i] = q.Cov()
	}
	explicit, err := f.SmoothWithNoise(est, qs, dts)
	assert.NoError(err)
	for i := range est {
		assert.True(mat.EqualApprox(smoothed[i].Val(), explicit[i].Val(), 1e-12))
	}

	_, err = f.Smooth(est, dts[1:])
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	_, err = f.SmoothWithNoise(est, qs[1:], dts)
	assert.True(errors.Is(err, filter.ErrInvalidArgument))

	empty, err := f.Smooth(nil, nil)
	assert.NoError(err)
	assert.Len(empty, 0)
}
