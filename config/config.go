// Package config reads run descriptions: which hyperparameters to
// sample or optimize, their priors and the optimizer settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// Methods are the supported optimization methods.
var Methods = []string{"mh", "annealing", "lbfgsb", "none"}

// Config is a run description.
type Config struct {
	// Method is one of Methods.
	Method     string `yaml:"method"`
	Iterations int    `yaml:"iterations"`
	// Report is the trajectory report period.
	Report int `yaml:"report"`
	// Accept is the acceptance rate report period.
	Accept int `yaml:"accept"`
	// Seed initializes the random generator, negative for time
	// based.
	Seed int64 `yaml:"seed"`
	// ProposalSD is the standard deviation of the normal proposal.
	ProposalSD float64 `yaml:"proposalSD"`

	Adaptive bool `yaml:"adaptive"`
	Skip     int  `yaml:"skip"`
	MaxAdapt int  `yaml:"maxAdapt"`

	// Checkpoint is the bolt database file name, empty to disable.
	Checkpoint        string  `yaml:"checkpoint"`
	CheckpointSeconds float64 `yaml:"checkpointSeconds"`

	Parameters []ParameterConfig `yaml:"parameters"`
}

// ParameterConfig describes a single hyperparameter.
type ParameterConfig struct {
	Name  string      `yaml:"name"`
	Prior PriorConfig `yaml:"prior"`
	// Start is the starting value, a prior sample if not set.
	Start *float64 `yaml:"start,omitempty"`
	// Likelihood is an optional Gaussian likelihood term.
	Likelihood *QuadraticConfig `yaml:"likelihood,omitempty"`
}

// QuadraticConfig is a Gaussian likelihood term.
type QuadraticConfig struct {
	Center float64 `yaml:"center"`
	Width  float64 `yaml:"width"`
}

// ErrInvalid is wrapped by all validation errors.
var ErrInvalid = errors.New("invalid configuration")

// Default returns a configuration with default settings and no
// parameters.
func Default() *Config {
	return &Config{
		Method:            "mh",
		Iterations:        10000,
		Report:            10,
		Accept:            200,
		Seed:              -1,
		ProposalSD:        1,
		Skip:              -1,
		MaxAdapt:          -1,
		CheckpointSeconds: 60,
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
// Unknown fields are errors.
func Parse(b []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a configuration file.
func Load(fn string) (*Config, error) {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	known := false
	for _, m := range Methods {
		if c.Method == m {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown method %q", ErrInvalid, c.Method)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: negative number of iterations", ErrInvalid)
	}
	if !(c.ProposalSD > 0) {
		return fmt.Errorf("%w: proposalSD should be positive", ErrInvalid)
	}
	if len(c.Parameters) == 0 {
		return fmt.Errorf("%w: no parameters", ErrInvalid)
	}
	names := make(map[string]bool, len(c.Parameters))
	for i, pc := range c.Parameters {
		if pc.Name == "" {
			return fmt.Errorf("%w: parameter #%d has no name", ErrInvalid, i+1)
		}
		if names[pc.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalid, pc.Name)
		}
		names[pc.Name] = true
		p, err := pc.Prior.Build()
		if err != nil {
			return fmt.Errorf("%w: parameter %q: %v", ErrInvalid, pc.Name, err)
		}
		if pc.Start != nil && prior.Classify(p.LogProbability([]float64{*pc.Start})) == prior.Infeasible {
			return fmt.Errorf("%w: parameter %q: start %v is outside of %v", ErrInvalid, pc.Name, *pc.Start, p)
		}
		if pc.Likelihood != nil && !(pc.Likelihood.Width > 0) {
			return fmt.Errorf("%w: parameter %q: likelihood width should be positive", ErrInvalid, pc.Name)
		}
	}
	return nil
}

// Priors builds the priors of all the parameters.
func (c *Config) Priors() ([]prior.Prior, error) {
	priors := make([]prior.Prior, len(c.Parameters))
	for i, pc := range c.Parameters {
		p, err := pc.Prior.Build()
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pc.Name, err)
		}
		priors[i] = p
	}
	return priors, nil
}

// Quadratic returns centers and widths of the likelihood terms. The
// width is zero for parameters without a likelihood term. ok is false
// if no parameter has a likelihood term.
func (c *Config) Quadratic() (centers, widths []float64, ok bool) {
	centers = make([]float64, len(c.Parameters))
	widths = make([]float64, len(c.Parameters))
	for i, pc := range c.Parameters {
		if pc.Likelihood == nil {
			continue
		}
		centers[i] = pc.Likelihood.Center
		widths[i] = pc.Likelihood.Width
		ok = true
	}
	return
}

// AdaptiveLimits returns skip and maxAdapt, replacing negative values
// with 5% and 20% of the iterations.
func (c *Config) AdaptiveLimits() (skip, maxAdapt int) {
	skip, maxAdapt = c.Skip, c.MaxAdapt
	if skip < 0 {
		skip = c.Iterations / 20
	}
	if maxAdapt < 0 {
		maxAdapt = c.Iterations / 5
	}
	return
}
