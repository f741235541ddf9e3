/*
Package prior implements prior distributions over hyperparameters
expressed in natural-log space.

Every prior provides the log-density, a sampler and the gradient of the
log-density. Values outside of the support are reported as negative
infinity, never as an error, so log-priors can be summed directly
inside acceptance ratios:

	t, err := prior.NewTophat(-3, 3)
	if err != nil {
		log.Fatal(err)
	}
	lnp := t.LogProbability([]float64{0}) // 0
	lnp = t.LogProbability([]float64{5})  // -Inf

Priors never own a random stream; the caller passes one to Sample.
*/
package prior

import (
	"errors"
	"math"

	"github.com/op/go-logging"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// log is the global logging variable.
var log = logging.MustGetLogger("prior")

// ErrInvalidBounds is returned if the upper bound of a prior is not
// greater than the lower bound.
var ErrInvalidBounds = errors.New("upper bound must be greater than lower bound")

// Prior is a prior distribution over a log-space hyperparameter.
type Prior interface {
	// LogProbability returns the (possibly unnormalized) log
	// density of theta.
	LogProbability(theta []float64) float64
	// Sample draws n values and returns them as a n×1 column.
	// If src is nil, the global source is used. Sample panics if
	// n < 1.
	Sample(src rand.Source, n int) *mat.Dense
	// Gradient returns the derivative of the log density for
	// every component of theta.
	Gradient(theta []float64) []float64
	// String returns the prior specification, e.g. "tophat:-3,3".
	String() string
}

// Bounded is implemented by priors which know their support.
type Bounded interface {
	// Bounds returns the lower and upper limit of the support,
	// which may be infinite.
	Bounds() (lo, hi float64)
}

// Quantiler is implemented by priors with an analytic quantile
// function.
type Quantiler interface {
	Quantile(p float64) float64
}

// Support classifies a log-probability value.
type Support int

const (
	// Finite is an ordinary log-probability.
	Finite Support = iota
	// Infeasible means the value is outside of the support.
	Infeasible
	// Singular is a pole of the density (positive infinity).
	Singular
)

func (s Support) String() string {
	switch s {
	case Finite:
		return "finite"
	case Infeasible:
		return "infeasible"
	case Singular:
		return "singular"
	}
	return "unknown"
}

// Classify converts a log-probability into a Support value. NaN is
// treated as infeasible.
func Classify(lnp float64) Support {
	switch {
	case math.IsInf(lnp, 1):
		return Singular
	case math.IsInf(lnp, -1), math.IsNaN(lnp):
		return Infeasible
	}
	return Finite
}

// column creates a n×1 matrix filling it with values returned by f.
func column(n int, f func() float64) *mat.Dense {
	if n < 1 {
		panic("number of samples should be >= 1")
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = f()
	}
	return mat.NewDense(n, 1, data)
}

// fill returns a slice of length n with all the values set to v.
func fill(n int, v float64) []float64 {
	r := make([]float64, n)
	for i := range r {
		r[i] = v
	}
	return r
}
