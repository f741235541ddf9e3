// Package optimize implements samplers and optimizers over
// hyperparameters regularized by priors.
package optimize

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/hyperprior/checkpoint"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Optimizable is something which has parameters and a likelihood.
type Optimizable interface {
	GetFloatParameters() FloatParameters
	Likelihood() float64
}

// Optimizer is an optimizer or a sampler.
type Optimizer interface {
	SetOptimizable(Optimizable)
	SetTrajectoryOutput(io.Writer)
	SetCheckpointIO(*checkpoint.CheckpointIO)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	Run(iterations int)
	PrintResults()
	Summary() Summary
}

// Summary stores the results of an optimization run.
type Summary struct {
	// Method is the optimizer name.
	Method string `json:"method"`
	// Iterations is the number of performed iterations.
	Iterations int `json:"iterations"`
	// Calls is the number of likelihood function calls.
	Calls int `json:"likelihoodCalls"`
	// MaxLnP is the maximum log posterior (likelihood + log prior),
	// nil if no finite posterior has been seen.
	MaxLnP *float64 `json:"maxLnP,omitempty"`
	// MaxParameters are the parameter values at MaxLnP.
	MaxParameters map[string]float64 `json:"maxParameters"`
	// AcceptanceRate is only set by samplers.
	AcceptanceRate float64 `json:"acceptanceRate,omitempty"`
	// PosteriorMean is the average of the sampled values.
	PosteriorMean map[string]float64 `json:"posteriorMean,omitempty"`
	// ExitStatus is the status reported by the optimizer library.
	ExitStatus string `json:"exitStatus,omitempty"`
	// Time is the running time in seconds.
	Time float64 `json:"time"`
}

// BaseOptimizer stores the state shared by all optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	method     string
	// i is the current iteration, startI is the first one
	// (non-zero after restoring a checkpoint).
	i      int
	startI int
	// done is set if a final checkpoint has been restored.
	done bool
	// l is the current log likelihood.
	l       float64
	maxL    float64
	maxLPar []float64
	calls   int

	repPeriod int
	sig       chan os.Signal
	out       io.Writer
	cpIO      *checkpoint.CheckpointIO
	startTime time.Time
	deltaT    time.Duration
	Quiet     bool
}

// SetOptimizable sets the model to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// SetTrajectoryOutput sets the writer for the trajectory.
func (o *BaseOptimizer) SetTrajectoryOutput(w io.Writer) {
	o.out = w
}

// SetCheckpointIO enables saving and restoring checkpoints.
func (o *BaseOptimizer) SetCheckpointIO(cpIO *checkpoint.CheckpointIO) {
	o.cpIO = cpIO
}

// WatchSignals makes the optimizer stop if one of the signals is
// received.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets how often the trajectory is written.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	if period < 1 {
		period = 1
	}
	o.repPeriod = period
}

// posterior returns the log posterior for the likelihood l.
func (o *BaseOptimizer) posterior(l float64) float64 {
	return l + o.parameters.LogPrior()
}

// SaveStart computes the starting likelihood and restores the
// checkpoint if there is one.
func (o *BaseOptimizer) SaveStart() {
	o.startTime = time.Now()
	o.maxL = math.Inf(-1)
	if o.repPeriod < 1 {
		o.repPeriod = 1
	}
	o.loadCheckpoint()
	o.l = o.Likelihood()
	o.calls++
	o.updateMax(o.l)
}

// updateMax stores the current parameters if the log posterior is the
// largest seen so far.
func (o *BaseOptimizer) updateMax(l float64) {
	lnp := o.posterior(l)
	// a singular prior is not a maximum
	if math.IsInf(lnp, 1) || math.IsNaN(lnp) {
		return
	}
	if lnp > o.maxL || o.maxLPar == nil {
		o.maxL = lnp
		o.maxLPar = o.parameters.Values(o.maxLPar)
	}
}

// loadCheckpoint restores parameter values and the iteration.
func (o *BaseOptimizer) loadCheckpoint() {
	if o.cpIO == nil {
		return
	}
	data, err := o.cpIO.GetParameters()
	if err != nil {
		log.Error("Error loading checkpoint:", err)
		return
	}
	if data == nil {
		return
	}
	if err := o.parameters.SetFromMap(data.Parameters); err != nil {
		log.Error("Error restoring parameters from checkpoint:", err)
		return
	}
	o.startI = data.Iter
	o.i = data.Iter
	o.done = data.Final
}

// saveCheckpoint saves a checkpoint if it is final or the last one is
// old enough.
func (o *BaseOptimizer) saveCheckpoint(final bool) {
	if o.cpIO == nil || (!final && !o.cpIO.Old()) {
		return
	}
	log.Debugf("Saving checkpoint (iter=%d, final=%v)", o.i, final)
	o.cpIO.Save(&checkpoint.CheckpointData{
		Parameters: o.parameters.Map(),
		Likelihood: checkpoint.Float(o.l),
		LogPrior:   checkpoint.Float(o.parameters.LogPrior()),
		Iter:       o.i,
		Final:      final,
	})
}

// signaled returns true if a watched signal has been received.
func (o *BaseOptimizer) signaled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return true
	default:
	}
	return false
}

// PrintHeader writes the trajectory header.
func (o *BaseOptimizer) PrintHeader() {
	if o.out != nil {
		fmt.Fprintf(o.out, "iteration\tlikelihood\tprior\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine writes a trajectory line every repPeriod iterations.
func (o *BaseOptimizer) PrintLine(l float64, force bool) {
	if o.out == nil || (!force && o.i%o.repPeriod != 0) {
		return
	}
	fmt.Fprintf(o.out, "%d\t%f\t%f\t%s\n", o.i, l, o.parameters.LogPrior(), o.parameters.ValuesString())
}

// PrintResults logs the maximum log posterior and the corresponding
// parameter values.
func (o *BaseOptimizer) PrintResults() {
	if o.Quiet {
		return
	}
	if o.maxLPar == nil {
		log.Warning("No finite log posterior found")
	} else {
		log.Noticef("Maximum log posterior: %v", o.maxL)
	}
	log.Infof("Likelihood function calls: %v", o.calls)
	for i, name := range o.parameters.Names(nil) {
		if i < len(o.maxLPar) {
			log.Noticef("%s=%s", name, strconv.FormatFloat(o.maxLPar[i], 'f', 6, 64))
		}
	}
	log.Infof("Running time: %v", o.deltaT)
}

// finish stores the running time.
func (o *BaseOptimizer) finish() {
	o.deltaT = time.Since(o.startTime)
}

// GetL returns the current log likelihood.
func (o *BaseOptimizer) GetL() float64 {
	return o.l
}

// GetMaxL returns the maximum log posterior.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns parameter values at the maximum.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// Summary returns the summary of the run.
func (o *BaseOptimizer) Summary() Summary {
	s := Summary{
		Method:        o.method,
		Iterations:    o.i,
		Calls:         o.calls,
		MaxParameters: make(map[string]float64, len(o.maxLPar)),
		Time:          o.deltaT.Seconds(),
	}
	if o.maxLPar != nil {
		maxL := o.maxL
		s.MaxLnP = &maxL
	}
	for i, name := range o.parameters.Names(nil) {
		if i < len(o.maxLPar) {
			s.MaxParameters[name] = o.maxLPar[i]
		}
	}
	return s
}
