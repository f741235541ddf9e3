package optimize

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/hyperprior/prior"
)

// SampleColumns draws n independent samples from every prior and
// returns them as a n×len(priors) matrix, one column per prior.
func SampleColumns(src rand.Source, n int, priors ...prior.Prior) *mat.Dense {
	if len(priors) == 0 {
		panic("no priors to sample from")
	}
	res := priors[0].Sample(src, n)
	for _, p := range priors[1:] {
		var aug mat.Dense
		aug.Augment(res, p.Sample(src, n))
		res = &aug
	}
	return res
}

// SampleParameters draws n samples from the parameter priors.
func (p FloatParameters) SampleParameters(src rand.Source, n int) *mat.Dense {
	priors := make([]prior.Prior, len(p))
	for i, par := range p {
		priors[i] = par.GetPrior()
	}
	return SampleColumns(src, n, priors...)
}
