package main

import (
	"bitbucket.org/Davydov/hyperprior/config"
	"bitbucket.org/Davydov/hyperprior/optimize"
)

// CallSummary stores information about the program call.
type CallSummary struct {
	// Version stores hyperprior version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// OptimizationSummary is storing run summary information.
type OptimizationSummary struct {
	// Time is the computations time in seconds.
	Time float64 `json:"optimizationTime"`
	// Optimizer is the optimizer summary.
	Optimizer optimize.Summary `json:"optimizer"`
	// Final is the parameter values in the end of the run.
	Final map[string]float64 `json:"final"`
}

// RunSummary is written by the run command.
type RunSummary struct {
	CallSummary
	Config *config.Config      `json:"config"`
	Run    OptimizationSummary `json:"run"`
}
