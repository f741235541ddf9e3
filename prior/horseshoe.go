package prior

import (
	"math"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultHorseshoeScale is the default horseshoe scale.
const DefaultHorseshoeScale = 0.1

// Horseshoe is a shrinkage prior concentrating the mass near zero
// while keeping a heavy tail. The log density is the closed-form
// approximation log(log(1 + 3*(scale/exp(theta))^2)).
type Horseshoe struct {
	scale float64
	// independent makes every sample use its own normal draw.
	independent bool
}

// NewHorseshoe creates a horseshoe prior. Scale should be positive,
// but this is not enforced.
//
// All the samples drawn by a single Sample call share one normal
// draw which scales every Cauchy variate, so the samples are not
// independent. Use NewIndependentHorseshoe for independent samples.
func NewHorseshoe(scale float64) *Horseshoe {
	if !(scale > 0) {
		log.Warningf("horseshoe prior with non-positive scale %v", scale)
	}
	return &Horseshoe{scale: scale}
}

// NewIndependentHorseshoe creates a horseshoe prior which draws an
// independent normal variate for every sample.
func NewIndependentHorseshoe(scale float64) *Horseshoe {
	h := NewHorseshoe(scale)
	h.independent = true
	return h
}

// Scale returns the scale of the prior.
func (h *Horseshoe) Scale() float64 {
	return h.scale
}

// Bounds returns the support, which is the whole real line.
func (h *Horseshoe) Bounds() (lo, hi float64) {
	return math.Inf(-1), math.Inf(1)
}

// u computes 3*(scale/exp(theta))^2.
func (h *Horseshoe) u(theta float64) float64 {
	r := h.scale / math.Exp(theta)
	return 3 * r * r
}

// LogProbability returns the log density summed over the components
// of theta. If any component is exactly zero, +Inf is returned.
func (h *Horseshoe) LogProbability(theta []float64) float64 {
	for _, x := range theta {
		if x == 0 {
			return math.Inf(1)
		}
	}
	lnp := 0.0
	for _, x := range theta {
		lnp += math.Log(math.Log1p(h.u(x)))
	}
	return lnp
}

// Sample draws n values: log|z * lambda * scale|, where lambda is the
// absolute value of a standard Cauchy variate and z is standard
// normal.
func (h *Horseshoe) Sample(src rand.Source, n int) *mat.Dense {
	// Student's t with one degree of freedom is a standard Cauchy.
	cauchy := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 1, Src: src}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	lambda := column(n, func() float64 {
		return math.Abs(cauchy.Rand())
	})

	z := math.NaN()
	if !h.independent {
		z = norm.Rand()
	}
	for i := 0; i < n; i++ {
		zi := z
		if h.independent {
			zi = norm.Rand()
		}
		lambda.Set(i, 0, math.Log(math.Abs(zi*lambda.At(i, 0)*h.scale)))
	}
	return lambda
}

// Gradient returns the derivative of the log density:
// -2u / ((1+u) log(1+u)) with u = 3*scale^2*exp(-2*theta).
func (h *Horseshoe) Gradient(theta []float64) []float64 {
	grad := make([]float64, len(theta))
	for i, x := range theta {
		u := h.u(x)
		l := math.Log1p(u)
		switch {
		case l == 0:
			// limit for u -> 0
			grad[i] = -2
			continue
		case math.IsInf(u, 1):
			grad[i] = 0
			continue
		}
		grad[i] = -2 * u / ((1 + u) * l)
	}
	return grad
}

func (h *Horseshoe) String() string {
	kind := "horseshoe"
	if h.independent {
		kind = "horseshoe-indep"
	}
	return kind + ":" + strconv.FormatFloat(h.scale, 'g', -1, 64)
}
