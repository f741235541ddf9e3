package optimize

import (
	"fmt"
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// singularStep is how far a start on a prior singularity is moved.
const singularStep = 1e-3

// LBFGSB finds the maximum a posteriori parameter values using
// L-BFGS-B. Parameter bounds are taken from the priors.
type LBFGSB struct {
	BaseOptimizer
	dH         float64
	grad       []float64
	pgrad      []float64
	x          []float64
	exitStatus string
	stopped    bool
}

// NewLBFGSB creates a new L-BFGS-B optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
			method:    "lbfgsb",
		},
		dH: 1e-6,
	}
	return
}

// Logger is called by L-BFGS-B after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = l.startI + info.Iteration
	l.parameters.SetValues(info.X)
	l.PrintLine(l.Likelihood(), false)
	l.saveCheckpoint(false)
	if l.signaled() {
		// L-BFGS-B cannot be interrupted from the logger; the
		// objective becomes flat instead.
		l.stopped = true
	}
}

// likelihood sets the parameters and returns the log likelihood.
func (l *LBFGSB) likelihood(x []float64) float64 {
	l.parameters.SetValues(x)
	l.calls++
	return l.Likelihood()
}

// EvaluateFunction returns the negative log posterior.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if l.stopped {
		return 0
	}
	if !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}
	L := l.likelihood(x)
	lp := l.parameters.LogPrior()
	if math.IsInf(lp, 1) {
		// singular prior, step over it
		return math.Inf(+1)
	}
	l.updateMax(L)
	return -(L + lp)
}

// EvaluateGradient returns the gradient of the negative log
// posterior. The likelihood gradient is computed numerically unless
// the model provides it.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
		l.x = make([]float64, len(x))
	}
	grad = l.grad
	if l.stopped {
		for i := range grad {
			grad[i] = 0
		}
		return
	}

	m, ok := l.Optimizable.(*Model)
	if !ok || !m.Gradient(x, grad) {
		copy(l.x, x)
		for i := range x {
			l.x[i] = x[i] - l.dH
			l1 := l.likelihood(l.x)
			l.x[i] = x[i] + l.dH
			l2 := l.likelihood(l.x)
			l.x[i] = x[i]
			grad[i] = (l2 - l1) / 2 / l.dH
		}
	}

	l.parameters.SetValues(x)
	l.pgrad = l.parameters.LogPriorGradient(l.pgrad)
	for i := range grad {
		grad[i] = -(grad[i] + l.pgrad[i])
	}
	return
}

// bounds returns parameter bounds moved slightly inside.
func (l *LBFGSB) bounds() [][2]float64 {
	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin()
		bounds[i][1] = par.GetMax()
		if !math.IsInf(bounds[i][0], 0) {
			bounds[i][0] += 1e-5
		}
		if !math.IsInf(bounds[i][1], 0) {
			bounds[i][1] -= 1e-5
		}
	}
	return bounds
}

// finiteStart returns the starting point with every component sitting
// on a prior singularity moved by singularStep inside the bounds. The
// objective is infinite there and L-BFGS-B cannot start from it.
func (l *LBFGSB) finiteStart() []float64 {
	x := l.parameters.Values(nil)
	for i, par := range l.parameters {
		pr := par.GetPrior()
		if prior.Classify(pr.LogProbability(x[i:i+1])) != prior.Singular {
			continue
		}
		for _, d := range []float64{singularStep, -singularStep} {
			v := []float64{x[i] + d}
			if par.ValueInRange(v[0]) && prior.Classify(pr.LogProbability(v)) == prior.Finite {
				log.Noticef("%s: start %v is a prior singularity, starting from %v", par.Name(), x[i], v[0])
				x[i] = v[0]
				break
			}
		}
	}
	return x
}

// Run starts the optimization.
func (l *LBFGSB) Run(iterations int) {
	l.SaveStart()
	l.PrintHeader()
	if l.done {
		log.Notice("Checkpoint is final, not optimizing")
		l.finish()
		return
	}
	if len(l.parameters) == 0 {
		log.Warning("No parameters to optimize")
		l.finish()
		return
	}

	opt := new(lbfgsb.Lbfgsb)
	// setting bounds initializes the dimensionality
	opt.SetBounds(l.bounds())
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.finiteStart())
	l.exitStatus = fmt.Sprint(exitStatus)

	log.Info("Exit status: ", l.exitStatus)

	if l.maxLPar != nil {
		l.parameters.SetValues(l.maxLPar)
	}
	l.l = l.Likelihood()
	l.PrintLine(l.l, true)
	l.saveCheckpoint(true)
	l.finish()
}

// Summary returns the summary including the exit status.
func (l *LBFGSB) Summary() Summary {
	s := l.BaseOptimizer.Summary()
	s.ExitStatus = l.exitStatus
	return s
}
