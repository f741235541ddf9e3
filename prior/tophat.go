package prior

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Tophat is a flat prior on a closed interval. The density is not
// normalized: it is 0 in log space inside the interval.
type Tophat struct {
	lower float64
	upper float64
}

// NewTophat creates a new tophat prior. Both bounds are on the log
// scale.
func NewTophat(lower, upper float64) (*Tophat, error) {
	// written this way to reject NaN bounds as well
	if !(upper > lower) {
		return nil, fmt.Errorf("tophat prior [%v, %v]: %w", lower, upper, ErrInvalidBounds)
	}
	return &Tophat{
		lower: lower,
		upper: upper,
	}, nil
}

// Bounds returns the interval of the prior.
func (t *Tophat) Bounds() (lo, hi float64) {
	return t.lower, t.upper
}

// inside tests whether all the components of theta are in the
// interval.
func (t *Tophat) inside(theta []float64) bool {
	for _, x := range theta {
		if x < t.lower || x > t.upper || math.IsNaN(x) {
			return false
		}
	}
	return true
}

// LogProbability returns 0 if all the components of theta are inside
// the bounds and -Inf otherwise.
func (t *Tophat) LogProbability(theta []float64) float64 {
	if !t.inside(theta) {
		return math.Inf(-1)
	}
	return 0
}

// Sample draws n values uniformly from the interval.
func (t *Tophat) Sample(src rand.Source, n int) *mat.Dense {
	u := distuv.Uniform{Min: t.lower, Max: t.upper, Src: src}
	return column(n, u.Rand)
}

// Gradient is zero inside the bounds. Outside of the bounds every
// component is -Inf, the same sentinel LogProbability uses; it is not
// a slope.
func (t *Tophat) Gradient(theta []float64) []float64 {
	if !t.inside(theta) {
		return fill(len(theta), math.Inf(-1))
	}
	return make([]float64, len(theta))
}

// Quantile returns the p-quantile of the uniform distribution.
func (t *Tophat) Quantile(p float64) float64 {
	return t.lower + p*(t.upper-t.lower)
}

func (t *Tophat) String() string {
	return "tophat:" + strconv.FormatFloat(t.lower, 'g', -1, 64) +
		"," + strconv.FormatFloat(t.upper, 'g', -1, 64)
}
