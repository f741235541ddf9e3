/*

Hyperprior samples, evaluates and plots log-space hyperparameter
priors, and runs samplers and optimizers over hyperparameters
regularized by them.

Draw 1000 samples from a horseshoe prior:

	hyperprior sample -n 1000 horseshoe:0.1

Evaluate the log density and its gradient:

	hyperprior eval lognormal:0.5 -- -1 0 1

Sample a posterior described in a YAML file:

	hyperprior run config.yaml

To see all the options run:

	hyperprior --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/op/go-logging"
	"golang.org/x/exp/rand"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("hyperprior")
var formatter = logging.MustStringFormatter(`%{message}`)

// loggers are the modules with configurable log level.
var loggers = []string{"hyperprior", "prior", "optimize", "checkpoint"}

// command-line options
var (
	// application
	app = kingpin.New("hyperprior", "log-space hyperparameter priors").Version(version)

	// technical
	seed     = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")

	// sample
	sampleCmd    = app.Command("sample", "draw samples, one column per prior")
	samplePriors = sampleCmd.Arg("prior", "prior specification, e.g. tophat:-3,3").Required().Strings()
	sampleN      = sampleCmd.Flag("n", "number of samples").Short('n').Default("10").Int()

	// eval
	evalCmd   = app.Command("eval", "print log density and gradient")
	evalPrior = evalCmd.Arg("prior", "prior specification").Required().String()
	evalX     = evalCmd.Arg("x", "log-space values").Required().Float64List()
	evalJoint = evalCmd.Flag("joint", "evaluate all the values as a single vector").Bool()

	// describe
	describeCmd   = app.Command("describe", "print support and quantiles")
	describePrior = describeCmd.Arg("prior", "prior specification").Required().String()
	describeN     = describeCmd.Flag("n", "number of samples for empirical statistics").Short('n').Default("100000").Int()

	// plot
	plotCmd   = app.Command("plot", "plot a histogram of samples and the density")
	plotPrior = plotCmd.Arg("prior", "prior specification").Required().String()
	plotOut   = plotCmd.Flag("out", "output image file (png, svg, pdf)").Short('o').Default("prior.png").String()
	plotN     = plotCmd.Flag("n", "number of samples").Short('n').Default("10000").Int()
	plotBins  = plotCmd.Flag("bins", "number of histogram bins").Default("50").Int()

	// run
	runCmd    = app.Command("run", "sample or optimize hyperparameters described by a YAML file")
	runConfig = runCmd.Arg("config", "YAML run configuration").Required().ExistingFile()
	outF      = runCmd.Flag("out", "write optimization trajectory to a file").String()
	startF    = runCmd.Flag("start", "read start position from the trajectory or JSON file").ExistingFile()
	jsonF     = runCmd.Flag("json", "write json output to a file").String()
)

// setupLogging configures the formatter, the backend and the levels.
func setupLogging() (closer func()) {
	logging.SetFormatter(formatter)

	closer = func() {}
	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		closer = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range loggers {
		logging.SetLevel(level, module)
	}
	return
}

// newSource returns a random source; a negative seed is replaced by a
// time based one.
func newSource(seed int64) (rand.Source, int64) {
	if seed < 0 {
		seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", seed)
	return rand.NewSource(uint64(seed)), seed
}

// writeJSON writes v to a file.
func writeJSON(fn string, v interface{}) {
	j, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	if err := ioutil.WriteFile(fn, j, 0666); err != nil {
		log.Error("Error creating json output file:", err)
	}
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	closer := setupLogging()
	defer closer()

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	var err error
	switch command {
	case sampleCmd.FullCommand():
		src, _ := newSource(*seed)
		err = sampleCommand(os.Stdout, src, *samplePriors, *sampleN)
	case evalCmd.FullCommand():
		err = evalCommand(os.Stdout, *evalPrior, *evalX, *evalJoint)
	case describeCmd.FullCommand():
		src, _ := newSource(*seed)
		err = describeCommand(os.Stdout, src, *describePrior, *describeN)
	case plotCmd.FullCommand():
		src, _ := newSource(*seed)
		err = plotCommand(src, *plotPrior, *plotOut, *plotN, *plotBins)
	case runCmd.FullCommand():
		err = runCommand()
	}
	if err != nil {
		log.Fatal(err)
	}
}
