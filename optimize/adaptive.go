// Proposal adaptation follows ideas and pseudocode presented by Xavier
// Meyer <Xavier.Meyer.2 at unil.ch>.

package optimize

import (
	"math"

	"golang.org/x/exp/rand"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// AdaptiveSettings control how adaptive parameters learn their
// proposal width.
type AdaptiveSettings struct {
	// WSize is the number of batch means used by the convergence
	// check.
	WSize int
	// K is the number of accepted values in a batch.
	K int
	// Skip is the first iteration which is used for adaptation.
	Skip int
	// MaxAdapt is the iteration which ends adaptation.
	MaxAdapt int
	// MaxUpdate is the maximum number of batches per parameter.
	MaxUpdate int
	// Epsilon is the relative spread of the recent means below
	// which adaptation stops.
	Epsilon float64
	// C is the initial Robbins-Monro step.
	C float64
	// Nu controls how fast the step decays.
	Nu float64
	// Lambda multiplies the proposal standard deviation.
	Lambda float64
	// SD is the initial proposal standard deviation.
	SD float64
	// Src is the random source for proposals, nil for the global
	// generator.
	Src rand.Source
}

// NewAdaptiveSettings returns the default settings.
func NewAdaptiveSettings() *AdaptiveSettings {
	return &AdaptiveSettings{
		WSize:     10,
		K:         20,
		Skip:      500,
		MaxAdapt:  2000,
		MaxUpdate: 200,
		Epsilon:   5e-1,
		C:         1,
		Nu:        3,
		Lambda:    2.4,
		SD:        1e-2,
	}
}

// ParameterGenerator is a FloatParameterGenerator creating adaptive
// parameters which share the settings.
func (as *AdaptiveSettings) ParameterGenerator(name string, pr prior.Prior) FloatParameter {
	return NewAdaptiveParameter(name, pr, as)
}

// runningStats is Welford's online mean and variance.
type runningStats struct {
	n    int
	mean float64
	m2   float64 // sum of squared deviations from the mean
}

func (s *runningStats) add(x float64) {
	s.n++
	d := x - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (x - s.mean)
}

// remove takes back a value which was added before.
func (s *runningStats) remove(x float64) {
	if s.n <= 1 {
		*s = runningStats{}
		return
	}
	s.n--
	d := x - s.mean
	s.mean -= d / float64(s.n)
	s.m2 -= d * (x - s.mean)
}

// variance returns the sample variance, NaN for less than two values.
func (s *runningStats) variance() float64 {
	if s.n < 2 {
		return math.NaN()
	}
	return s.m2 / float64(s.n-1)
}

// window keeps the statistics of the last len(ring) values.
type window struct {
	runningStats
	ring []float64
	next int
}

func newWindow(size int) *window {
	return &window{ring: make([]float64, size)}
}

func (w *window) push(x float64) {
	if w.full() {
		w.remove(w.ring[w.next])
	}
	w.ring[w.next] = x
	w.next = (w.next + 1) % len(w.ring)
	w.add(x)
}

func (w *window) full() bool {
	return w.n == len(w.ring)
}

// relativeSpread is sd/|mean| of the window. Log-space means can be
// negative or zero; a zero mean gives +Inf or NaN.
func (w *window) relativeSpread() float64 {
	return math.Sqrt(w.variance()) / math.Abs(w.mean)
}

// robbinsMonro is a step size which decays every time the batch mean
// crosses the learned mean.
type robbinsMonro struct {
	c, nu float64
	turns int
	above bool
}

// step returns the step for the given drift of the batch mean.
func (r *robbinsMonro) step(drift float64) float64 {
	if drift > 0 && !r.above || drift < 0 && r.above {
		r.turns++
	}
	r.above = drift > 0
	return r.c / math.Pow(float64(r.turns+1), 1/math.Max(1, 1+r.nu))
}

// AdaptiveParameter is a parameter whose normal proposal variance is
// learned from the accepted values in batches of K.
type AdaptiveParameter struct {
	*BasicFloatParameter
	settings *AdaptiveSettings

	mean      float64
	variance  float64
	rm        robbinsMonro
	batch     runningStats
	batches   int     // completed batches
	means     *window // recent learned means
	converged bool
}

// NewAdaptiveParameter creates a new adaptive parameter. It panics if
// the settings are invalid.
func NewAdaptiveParameter(name string, pr prior.Prior, as *AdaptiveSettings) *AdaptiveParameter {
	switch {
	case !(as.SD > 0):
		panic("SD should be > 0")
	case as.K < 2:
		panic("K should be >= 2")
	case as.WSize < 1:
		panic("WSize should be >= 1")
	}
	a := &AdaptiveParameter{
		BasicFloatParameter: NewBasicFloatParameter(name, pr),
		settings:            as,
		mean:                math.NaN(),
		variance:            as.SD * as.SD,
		rm:                  robbinsMonro{c: as.C, nu: as.Nu},
		means:               newWindow(as.WSize),
	}
	a.SetProposalFunc(a.proposal(newRand(as.Src)))
	return a
}

// Accept adapts the proposal while iter is in [Skip, MaxAdapt).
func (a *AdaptiveParameter) Accept(iter int) {
	if iter >= a.settings.Skip && iter < a.settings.MaxAdapt {
		a.adapt()
	}
}

// adapt adds the current value to the batch, closing the batch first
// if it is full.
func (a *AdaptiveParameter) adapt() {
	if a.converged {
		return
	}
	if math.IsNaN(a.mean) {
		a.mean = a.value
	}
	if a.batch.n == a.settings.K {
		a.closeBatch()
	}
	a.batch.add(a.value)
}

// closeBatch moves the mean and the variance towards the batch
// statistics and checks for convergence.
func (a *AdaptiveParameter) closeBatch() {
	gamma := a.rm.step(a.batch.mean - a.mean)
	a.mean += gamma * (a.batch.mean - a.mean)
	a.variance += gamma * (a.batch.variance() - a.variance)
	a.batches++
	a.batch = runningStats{}

	a.means.push(a.mean)
	if !a.means.full() {
		return
	}
	switch {
	case a.means.relativeSpread() < a.settings.Epsilon:
		a.converged = true
		log.Infof("%s: adaptation converged, variance=%v", a.Name(), a.variance)
	case a.batches > a.settings.MaxUpdate:
		a.converged = true
		log.Infof("%s: adaptation stopped after %d batches", a.Name(), a.batches)
	}
}

// proposal is a normal random walk using the learned variance.
func (a *AdaptiveParameter) proposal(rnd *rand.Rand) func(float64) float64 {
	return func(x float64) float64 {
		return x + rnd.NormFloat64()*math.Sqrt(a.variance)*a.settings.Lambda
	}
}

// Variance returns the current proposal variance.
func (a *AdaptiveParameter) Variance() float64 {
	return a.variance
}

// Converged returns true if the adaptation has stopped.
func (a *AdaptiveParameter) Converged() bool {
	return a.converged
}
