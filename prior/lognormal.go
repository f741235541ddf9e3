package prior

import (
	"math"
	"strconv"

	"github.com/gonum/mathext"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// logRoot2Pi is log(sqrt(2*pi)).
var logRoot2Pi = 0.5 * math.Log(2*math.Pi)

// Lognormal is a log-normal prior.
//
// The density treats mean as a location shift: theta is used as is (it
// is not exponentiated) and the support is (mean, +Inf). Samples are
// exp(N(mean, sigma^2)), so mean is the log-scale mean there. Both
// conventions agree for mean=0.
type Lognormal struct {
	sigma float64
	mean  float64
}

// NewLognormal creates a log-normal prior with the standard deviation
// sigma and mean of the underlying normal distribution.
func NewLognormal(sigma, mean float64) *Lognormal {
	if !(sigma > 0) {
		log.Warningf("lognormal prior with non-positive sigma %v", sigma)
	}
	return &Lognormal{
		sigma: sigma,
		mean:  mean,
	}
}

// Sigma returns the standard deviation of the normal distribution.
func (l *Lognormal) Sigma() float64 {
	return l.sigma
}

// Mean returns the mean (location).
func (l *Lognormal) Mean() float64 {
	return l.mean
}

// Bounds returns the support (mean, +Inf).
func (l *Lognormal) Bounds() (lo, hi float64) {
	return l.mean, math.Inf(1)
}

// logProb computes the log density of a single value.
func (l *Lognormal) logProb(theta float64) float64 {
	x := theta - l.mean
	if !(x > 0) {
		return math.Inf(-1)
	}
	logx := math.Log(x)
	d := logx / l.sigma
	return -0.5*d*d - logx - math.Log(l.sigma) - logRoot2Pi
}

// LogProbability returns the log density summed over the components
// of theta.
func (l *Lognormal) LogProbability(theta []float64) float64 {
	lnp := 0.0
	for _, x := range theta {
		lnp += l.logProb(x)
	}
	return lnp
}

// Sample draws n log-normal values.
func (l *Lognormal) Sample(src rand.Source, n int) *mat.Dense {
	d := distuv.LogNormal{Mu: l.mean, Sigma: l.sigma, Src: src}
	return column(n, d.Rand)
}

// Gradient returns -(1 + log(x)/sigma^2)/x with x = theta - mean, or
// -Inf outside of the support.
func (l *Lognormal) Gradient(theta []float64) []float64 {
	grad := make([]float64, len(theta))
	for i, t := range theta {
		x := t - l.mean
		if !(x > 0) {
			grad[i] = math.Inf(-1)
			continue
		}
		grad[i] = -(1 + math.Log(x)/(l.sigma*l.sigma)) / x
	}
	return grad
}

// Quantile returns the p-quantile of the density.
func (l *Lognormal) Quantile(p float64) float64 {
	return l.mean + math.Exp(l.sigma*mathext.NormalQuantile(p))
}

func (l *Lognormal) String() string {
	return "lognormal:" + strconv.FormatFloat(l.sigma, 'g', -1, 64) +
		"," + strconv.FormatFloat(l.mean, 'g', -1, 64)
}
