package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/exp/rand"
	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/hyperprior/checkpoint"
	"bitbucket.org/Davydov/hyperprior/config"
	"bitbucket.org/Davydov/hyperprior/optimize"
)

// checkpointKey is the key of the run state in the checkpoint
// database.
var checkpointKey = []byte("run")

// lastLine returns the last line of a file content.
func lastLine(fn string) (line string, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return line, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line = scanner.Text()
	}
	err = scanner.Err()
	return line, err
}

// readStart sets parameter values from the last line of a trajectory
// or from a JSON file.
func readStart(par optimize.FloatParameters, fn string) error {
	l, err := lastLine(fn)
	if err == nil {
		err = par.ReadLine(l)
	}
	if err != nil {
		log.Debug("Reading start file as JSON")
		err2 := par.ReadFromJSON(fn)
		// fn is neither trajectory nor correct JSON
		if err2 != nil {
			log.Error("Error reading start position from JSON:", err2)
			return fmt.Errorf("error reading start position from trajectory file: %w", err)
		}
	}
	if !par.InRange() {
		return fmt.Errorf("initial parameters are not in the range")
	}
	return nil
}

// optimizerSettings stores settings for creation of a new optimizer.
type optimizerSettings struct {
	*config.Config

	src   rand.Source
	trajF io.Writer
	cpIO  *checkpoint.CheckpointIO

	skip     int
	maxAdapt int
}

// newOptimizerSettings creates optimizerSettings from a configuration.
func newOptimizerSettings(cfg *config.Config, src rand.Source, trajF io.Writer) *optimizerSettings {
	o := &optimizerSettings{
		Config: cfg,
		src:    src,
		trajF:  trajF,
	}
	o.skip, o.maxAdapt = cfg.AdaptiveLimits()
	return o
}

// parameters creates the parameters with their priors and starting
// values.
func (o *optimizerSettings) parameters() (optimize.FloatParameters, error) {
	priors, err := o.Priors()
	if err != nil {
		return nil, err
	}

	var gen optimize.FloatParameterGenerator = optimize.BasicFloatParameterGenerator
	if o.Adaptive {
		as := optimize.NewAdaptiveSettings()
		log.Infof("Setting adaptive parameters, skip=%v, maxAdapt=%v", o.skip, o.maxAdapt)
		as.Skip = o.skip
		as.MaxAdapt = o.maxAdapt
		as.Src = o.src
		gen = as.ParameterGenerator
	}

	var par optimize.FloatParameters
	for i, pc := range o.Parameters {
		p := gen(pc.Name, priors[i])
		if !o.Adaptive {
			p.SetProposalFunc(optimize.NormalProposal(o.src, o.ProposalSD))
		}
		if pc.Start != nil {
			p.Set(*pc.Start)
		} else {
			optimize.FloatParameters{p}.Randomize(o.src)
		}
		log.Infof("%s: prior %v, start %s", p.Name(), p.GetPrior(), p)
		par.Append(p)
	}
	return par, nil
}

// objective returns the likelihood described by the configuration,
// nil if there is none.
func (o *optimizerSettings) objective() optimize.Objective {
	centers, widths, ok := o.Quadratic()
	if !ok {
		log.Info("No likelihood terms, sampling from the priors")
		return nil
	}
	return &optimize.QuadraticObjective{Centers: centers, Widths: widths}
}

// create creates and initializes a new optimizer.
func (o *optimizerSettings) create(m optimize.Optimizable) (optimize.Optimizer, error) {
	opt, err := o.getOptimizer()
	if err != nil {
		return nil, err
	}
	log.Infof("Using %s optimization.", o.Method)

	opt.SetTrajectoryOutput(o.trajF)
	opt.SetOptimizable(m)
	opt.SetReportPeriod(o.Report)
	if o.cpIO != nil {
		opt.SetCheckpointIO(o.cpIO)
	}

	return opt, nil
}

// getOptimizer returns an optimizer from settings.
func (o *optimizerSettings) getOptimizer() (optimize.Optimizer, error) {
	switch o.Method {
	case "lbfgsb":
		return optimize.NewLBFGSB(), nil
	case "mh":
		chain := optimize.NewMH(false, 0, o.src)
		chain.AccPeriod = o.Accept
		return chain, nil
	case "annealing":
		chain := optimize.NewMH(true, o.maxAdapt, o.src)
		chain.AccPeriod = o.Accept
		return chain, nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("unknown optimization method: %s", o.Method)
}

// openCheckpoint opens the checkpoint database.
func openCheckpoint(fn string, seconds float64) (*bolt.DB, *checkpoint.CheckpointIO, error) {
	db, err := bolt.Open(fn, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("error opening checkpoint database: %w", err)
	}
	log.Infof("Using checkpoint file %s", fn)
	return db, checkpoint.NewCheckpointIO(db, checkpointKey, seconds), nil
}

// runOptimization builds the model from cfg and runs the optimizer.
func runOptimization(cfg *config.Config, src rand.Source, traj io.Writer, startFileName string) (summary OptimizationSummary, err error) {
	startTime := time.Now()

	o := newOptimizerSettings(cfg, src, traj)

	par, err := o.parameters()
	if err != nil {
		return summary, err
	}
	if startFileName != "" {
		if err := readStart(par, startFileName); err != nil {
			return summary, err
		}
	}
	log.Infof("Model has %d parameters.", len(par))

	if cfg.Checkpoint != "" {
		var db *bolt.DB
		db, o.cpIO, err = openCheckpoint(cfg.Checkpoint, cfg.CheckpointSeconds)
		if err != nil {
			return summary, err
		}
		defer db.Close()
	}

	m := optimize.NewModel(o.objective(), par)
	opt, err := o.create(m)
	if err != nil {
		return summary, err
	}
	opt.WatchSignals(os.Interrupt, syscall.SIGTERM)

	opt.Run(cfg.Iterations)
	opt.PrintResults()

	summary.Optimizer = opt.Summary()
	summary.Final = par.Map()
	summary.Time = time.Since(startTime).Seconds()
	return summary, nil
}

// runCommand executes the run command using the global flags.
func runCommand() error {
	startTime := time.Now()

	cfg, err := config.Load(*runConfig)
	if err != nil {
		return err
	}
	// command-line seed overrides the configuration
	if *seed >= 0 {
		cfg.Seed = *seed
	}
	src, effectiveSeed := newSource(cfg.Seed)

	var f io.Writer = os.Stdout
	if *outF != "" {
		tf, err := os.Create(*outF)
		if err != nil {
			return fmt.Errorf("error creating trajectory file: %w", err)
		}
		defer tf.Close()
		f = tf
	}

	summary, err := runOptimization(cfg, src, f, *startF)
	if err != nil {
		return err
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	if *jsonF != "" {
		writeJSON(*jsonF, RunSummary{
			CallSummary: CallSummary{
				Version:     version,
				CommandLine: os.Args,
				Seed:        effectiveSeed,
				TotalTime:   deltaT.Seconds(),
			},
			Config: cfg,
			Run:    summary,
		})
	}
	return nil
}
