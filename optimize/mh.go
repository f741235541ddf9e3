package optimize

import (
	"math"

	"golang.org/x/exp/rand"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// MH is a Metropolis-Hastings sampler.
type MH struct {
	BaseOptimizer
	AccPeriod int
	annealing bool
	// iteration to skip before annealing
	annealingSkip int
	rnd           *rand.Rand

	accepted int
	sampled  int
	sums     []float64
}

// NewMH creates a new MH sampler. If annealing is true, the
// acceptance ratio is tempered after annealingSkip iterations
// (simulated annealing). The random source is used to choose
// parameters and accept proposals; nil means the global generator.
func NewMH(annealing bool, annealingSkip int, src rand.Source) (mcmc *MH) {
	mcmc = &MH{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
			method:    "mh",
		},
		AccPeriod:     10,
		annealing:     annealing,
		annealingSkip: annealingSkip,
		rnd:           newRand(src),
	}
	if annealing {
		mcmc.method = "annealing"
	}
	return
}

// temperature returns annealing temperature at iteration i.
func (m *MH) temperature(i, iterations int) float64 {
	if !m.annealing || i < m.annealingSkip || iterations <= m.annealingSkip {
		return 1
	}
	return math.Pow(0.9, float64(i-m.annealingSkip)/float64(iterations-m.annealingSkip)*100)
}

// priorRatio returns the log prior ratio of a proposal. If the old
// value had an infinite prior, any feasible proposal is taken.
func priorRatio(lpNew, lpOld float64) float64 {
	if math.IsInf(lpOld, 0) || math.IsNaN(lpOld) {
		return math.Inf(1)
	}
	return lpNew - lpOld
}

// Run starts sampling.
func (m *MH) Run(iterations int) {
	m.SaveStart()
	m.PrintHeader()
	m.sums = make([]float64, len(m.parameters))
	accepted := 0
	l := m.l

	if len(m.parameters) == 0 {
		log.Warning("No parameters to sample")
		m.finish()
		return
	}
	if m.done {
		log.Notice("Checkpoint is final, not sampling")
		m.finish()
		return
	}
	if m.AccPeriod < 1 {
		m.AccPeriod = 1
	}

Iter:
	for m.i = m.startI; m.i < iterations; m.i++ {
		T := m.temperature(m.i, iterations)
		if m.i > m.startI && m.i%m.AccPeriod == 0 {
			log.Infof("Acceptance rate %.2f%%", 100*float64(accepted)/float64(m.AccPeriod))
			accepted = 0
		}

		m.PrintLine(l, false)
		if m.i%m.repPeriod == 0 {
			if m.annealing {
				log.Debugf("%d: L=%f, T=%f", m.i, l, T)
			} else {
				log.Debugf("%d: L=%f", m.i, l)
			}
		}

		par := m.parameters[m.rnd.Intn(len(m.parameters))]
		par.Propose()

		lpNew := par.Prior()
		if s := prior.Classify(lpNew); s != prior.Finite {
			log.Debugf("%s: rejecting %s proposal %v", par.Name(), s, par.Get())
			par.Reject()
		} else {
			newL := m.Likelihood()
			m.calls++

			lnA := (priorRatio(lpNew, par.OldPrior()) + newL - l) / T
			if !math.IsNaN(lnA) && (lnA >= 0 || math.Log(m.rnd.Float64()) < lnA) {
				l = newL
				m.l = l
				par.Accept(m.i)
				accepted++
				m.accepted++
				m.updateMax(l)
			} else {
				par.Reject()
			}
		}

		for i, par := range m.parameters {
			m.sums[i] += par.Get()
		}
		m.sampled++

		m.saveCheckpoint(false)

		if m.signaled() {
			break Iter
		}
	}

	m.PrintLine(l, true)
	m.saveCheckpoint(true)
	m.finish()
}

// Summary returns the summary including the acceptance rate and the
// average parameter values.
func (m *MH) Summary() Summary {
	s := m.BaseOptimizer.Summary()
	if m.sampled == 0 {
		return s
	}
	s.AcceptanceRate = float64(m.accepted) / float64(m.sampled)
	s.PosteriorMean = make(map[string]float64, len(m.parameters))
	for i, name := range m.parameters.Names(nil) {
		s.PosteriorMean[name] = m.sums[i] / float64(m.sampled)
	}
	return s
}
