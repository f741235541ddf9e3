package optimize

import (
	"golang.org/x/exp/rand"
)

// Rand returns a random value in the range [0, 1], including 1.
func Rand(rnd *rand.Rand) float64 {
	// 1.0 is not included and we would like to be symmetric
	r := float64(1)
	for r > 0.999 {
		r = rnd.Float64()
	}
	return r / 0.999
}

// UniformProposal returns uniform proposal function drawing from src
// (nil for the global generator).
func UniformProposal(src rand.Source, width float64) func(float64) float64 {
	if width <= 0 {
		panic("width should be positive")
	}
	rnd := newRand(src)
	return func(x float64) float64 {
		return x + Rand(rnd)*width - width/2
	}
}

// NormalProposal returns normal proposal function drawing from src
// (nil for the global generator).
func NormalProposal(src rand.Source, sd float64) func(float64) float64 {
	if sd <= 0 {
		panic("sd should be positive")
	}
	rnd := newRand(src)
	return func(x float64) float64 {
		return x + rnd.NormFloat64()*sd
	}
}
