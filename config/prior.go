package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// Prior kinds.
const (
	KindTophat         = "tophat"
	KindHorseshoe      = "horseshoe"
	KindHorseshoeIndep = "horseshoe-indep"
	KindLognormal      = "lognormal"
)

var (
	// ErrUnknownPrior is returned for an unknown prior kind.
	ErrUnknownPrior = errors.New("unknown prior")
	// ErrPriorArguments is returned if prior arguments are missing
	// or malformed.
	ErrPriorArguments = errors.New("wrong prior arguments")
)

// PriorConfig describes a prior. In YAML it is either a mapping or a
// specification string like "tophat:-3,3".
type PriorConfig struct {
	Kind  string   `yaml:"kind"`
	Lower *float64 `yaml:"lower,omitempty"`
	Upper *float64 `yaml:"upper,omitempty"`
	Scale *float64 `yaml:"scale,omitempty"`
	Sigma *float64 `yaml:"sigma,omitempty"`
	Mean  float64  `yaml:"mean,omitempty"`
	// Independent selects independent normal draws for the
	// horseshoe sampler.
	Independent bool `yaml:"independent,omitempty"`
}

// UnmarshalYAML accepts both forms of the prior description.
func (pc *PriorConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		parsed, err := ParsePriorConfig(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*pc = parsed
		return nil
	}
	type plain PriorConfig
	return value.Decode((*plain)(pc))
}

// ParsePriorConfig parses a specification of the form kind[:a[,b]]:
//
//	tophat:LOWER,UPPER
//	horseshoe[:SCALE]
//	horseshoe-indep[:SCALE]
//	lognormal:SIGMA[,MEAN]
func ParsePriorConfig(s string) (pc PriorConfig, err error) {
	kind, argString := s, ""
	if i := strings.IndexByte(s, ':'); i >= 0 {
		kind, argString = s[:i], s[i+1:]
	}
	pc.Kind = strings.ToLower(strings.TrimSpace(kind))

	var args []float64
	if strings.TrimSpace(argString) != "" {
		for _, f := range strings.Split(argString, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return pc, fmt.Errorf("%w %q: %v", ErrPriorArguments, s, err)
			}
			args = append(args, v)
		}
	}

	nargs := func(min, max int) error {
		if len(args) < min || len(args) > max {
			return fmt.Errorf("%w %q: %d argument(s)", ErrPriorArguments, s, len(args))
		}
		return nil
	}

	switch pc.Kind {
	case KindTophat:
		if err := nargs(2, 2); err != nil {
			return pc, err
		}
		pc.Lower, pc.Upper = &args[0], &args[1]
	case KindHorseshoe, KindHorseshoeIndep:
		if err := nargs(0, 1); err != nil {
			return pc, err
		}
		if len(args) == 1 {
			pc.Scale = &args[0]
		}
	case KindLognormal:
		if err := nargs(1, 2); err != nil {
			return pc, err
		}
		pc.Sigma = &args[0]
		if len(args) == 2 {
			pc.Mean = args[1]
		}
	default:
		return pc, fmt.Errorf("%w %q", ErrUnknownPrior, pc.Kind)
	}
	return pc, nil
}

// Build creates the prior.
func (pc PriorConfig) Build() (prior.Prior, error) {
	switch pc.Kind {
	case KindTophat:
		if pc.Lower == nil || pc.Upper == nil {
			return nil, fmt.Errorf("%w: tophat needs lower and upper", ErrPriorArguments)
		}
		t, err := prior.NewTophat(*pc.Lower, *pc.Upper)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindHorseshoe, KindHorseshoeIndep:
		scale := prior.DefaultHorseshoeScale
		if pc.Scale != nil {
			scale = *pc.Scale
		}
		if pc.Independent || pc.Kind == KindHorseshoeIndep {
			return prior.NewIndependentHorseshoe(scale), nil
		}
		return prior.NewHorseshoe(scale), nil
	case KindLognormal:
		if pc.Sigma == nil {
			return nil, fmt.Errorf("%w: lognormal needs sigma", ErrPriorArguments)
		}
		return prior.NewLognormal(*pc.Sigma, pc.Mean), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPrior, pc.Kind)
}

// ParsePrior parses a prior specification and creates the prior.
func ParsePrior(s string) (prior.Prior, error) {
	pc, err := ParsePriorConfig(s)
	if err != nil {
		return nil, err
	}
	return pc.Build()
}
