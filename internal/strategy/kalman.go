// Package strategy contains signal generation logic wired into price ticks.
package strategy

import (
	"errors"
	"math"
)

// ErrDegenerateVariance reports a numerically degenerate innovation variance
// (S <= 0). The update is rejected, prior state is retained unchanged, and the
// caller must not trade on this tick.
var ErrDegenerateVariance = errors.New("innovation variance not positive")

// Estimate is the output of one accepted filter update.
type Estimate struct {
	Z          float64 // standardized prediction error (deviation score)
	Beta       float64 // posterior slope, the dynamic hedge ratio
	Alpha      float64 // posterior intercept
	PredictedY float64 // H * prior mean
	Err        float64 // y - PredictedY, the raw innovation
}

// Estimator is an online Kalman filter over the time-varying regression
//
//	y_t = alpha_t + beta_t*x_t + eps_t
//
// with the coefficients modeled as a random walk. The innovation, normalized
// by its estimated standard deviation, is the mean-reversion trading signal.
//
// Calls to Update must be strictly sequential; one goroutine owns each
// instance.
type Estimator struct {
	mean [2]float64    // [alpha, beta]
	cov  [2][2]float64 // state covariance, kept symmetric
	q    float64       // per-tick process noise (diagonal of Q)
	r    float64       // scalar measurement noise
}

// NewEstimator builds a filter with mean zero and identity covariance scaled
// by initVar, so the first observations dominate the prior. delta controls
// how fast the hedge ratio may drift per tick; r is the inherent market noise.
func NewEstimator(delta, r, initVar float64) *Estimator {
	if initVar <= 0 {
		initVar = 1.0
	}
	return &Estimator{
		cov: [2][2]float64{{initVar, 0}, {0, initVar}},
		q:   delta,
		r:   r,
	}
}

// Update runs one predict/observe cycle against a (y, x) price pair, mutating
// the filter state in place. On ErrDegenerateVariance the state is untouched.
func (e *Estimator) Update(yPrice, xPrice float64) (Estimate, error) {
	// Predict: random walk means the prior mean is the last posterior; only
	// the covariance inflates, by Q.
	p := e.cov
	p[0][0] += e.q
	p[1][1] += e.q

	// Observe through H = [1, x].
	predicted := e.mean[0] + e.mean[1]*xPrice
	innov := yPrice - predicted

	// S = H P Ht + R, the innovation variance.
	ph0 := p[0][0] + p[0][1]*xPrice
	ph1 := p[1][0] + p[1][1]*xPrice
	s := ph0 + ph1*xPrice + e.r
	if s <= 0 {
		return Estimate{}, ErrDegenerateVariance
	}

	// K = P Ht / S.
	k0 := ph0 / s
	k1 := ph1 / s

	e.mean[0] += k0 * innov
	e.mean[1] += k1 * innov

	// P = P - (K outer H) P, then symmetrize to counter float drift.
	var post [2][2]float64
	post[0][0] = p[0][0] - k0*(p[0][0]+xPrice*p[1][0])
	post[0][1] = p[0][1] - k0*(p[0][1]+xPrice*p[1][1])
	post[1][0] = p[1][0] - k1*(p[0][0]+xPrice*p[1][0])
	post[1][1] = p[1][1] - k1*(p[0][1]+xPrice*p[1][1])
	off := (post[0][1] + post[1][0]) / 2
	post[0][1], post[1][0] = off, off
	e.cov = post

	return Estimate{
		Z:          innov / math.Sqrt(s),
		Beta:       e.mean[1],
		Alpha:      e.mean[0],
		PredictedY: predicted,
		Err:        innov,
	}, nil
}

// Mean returns the current [alpha, beta] state estimate.
func (e *Estimator) Mean() [2]float64 { return e.mean }

// Cov returns the current state covariance.
func (e *Estimator) Cov() [2][2]float64 { return e.cov }
