package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/Davydov/hyperprior/config"
	"bitbucket.org/Davydov/hyperprior/optimize"
	"bitbucket.org/Davydov/hyperprior/prior"
)

// quantileLevels are printed by describe.
var quantileLevels = []float64{0.025, 0.25, 0.5, 0.75, 0.975}

// formatFloat formats a value the way trajectories do.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// parsePriors parses all the prior specifications.
func parsePriors(specs []string) ([]prior.Prior, error) {
	priors := make([]prior.Prior, len(specs))
	for i, s := range specs {
		p, err := config.ParsePrior(s)
		if err != nil {
			return nil, err
		}
		log.Infof("Prior #%d: %v", i+1, p)
		priors[i] = p
	}
	return priors, nil
}

// sampleCommand writes n rows of samples, one column per prior.
func sampleCommand(w io.Writer, src rand.Source, specs []string, n int) error {
	if n < 1 {
		return fmt.Errorf("number of samples should be positive, got %d", n)
	}
	priors, err := parsePriors(specs)
	if err != nil {
		return err
	}
	m := optimize.SampleColumns(src, n, priors...)
	row := make([]string, len(priors))
	for i := 0; i < n; i++ {
		for j := range row {
			row[j] = formatFloat(m.At(i, j))
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// evalCommand writes log density and gradient for every value, or for
// all the values as a single vector if joint is set.
func evalCommand(w io.Writer, spec string, xs []float64, joint bool) error {
	p, err := config.ParsePrior(spec)
	if err != nil {
		return err
	}
	if joint {
		grad := p.Gradient(xs)
		gs := make([]string, len(grad))
		for i, g := range grad {
			gs[i] = formatFloat(g)
		}
		lnp := p.LogProbability(xs)
		log.Infof("Joint log prior is %v", prior.Classify(lnp))
		_, err := fmt.Fprintf(w, "%s\t%s\n", formatFloat(lnp), strings.Join(gs, "\t"))
		return err
	}
	for _, x := range xs {
		theta := []float64{x}
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			formatFloat(x),
			formatFloat(p.LogProbability(theta)),
			formatFloat(p.Gradient(theta)[0]))
		if err != nil {
			return err
		}
	}
	return nil
}

// sortedSamples returns n sorted samples.
func sortedSamples(p prior.Prior, src rand.Source, n int) []float64 {
	s := make([]float64, n)
	copy(s, p.Sample(src, n).RawMatrix().Data)
	sort.Float64s(s)
	return s
}

// quantiles returns the quantiles at levels, analytic if the prior
// provides them, empirical otherwise.
func quantiles(p prior.Prior, sorted []float64, levels []float64) (q []float64, analytic bool) {
	q = make([]float64, len(levels))
	if qp, ok := p.(prior.Quantiler); ok {
		for i, l := range levels {
			q[i] = qp.Quantile(l)
		}
		return q, true
	}
	for i, l := range levels {
		q[i] = stat.Quantile(l, stat.Empirical, sorted, nil)
	}
	return q, false
}

// describeCommand writes support, quantiles and sample moments. The
// moments always come from Sample, which may differ from the density
// used for the quantiles.
func describeCommand(w io.Writer, src rand.Source, spec string, n int) error {
	if n < 1 {
		return fmt.Errorf("number of samples should be positive, got %d", n)
	}
	p, err := config.ParsePrior(spec)
	if err != nil {
		return err
	}
	lo, hi := math.Inf(-1), math.Inf(+1)
	if b, ok := p.(prior.Bounded); ok {
		lo, hi = b.Bounds()
	}
	samples := sortedSamples(p, src, n)
	q, analytic := quantiles(p, samples, quantileLevels)
	kind := "empirical"
	if analytic {
		kind = "analytic"
	}

	fmt.Fprintf(w, "prior\t%v\n", p)
	fmt.Fprintf(w, "support\t%v\t%v\n", lo, hi)
	for i, l := range quantileLevels {
		fmt.Fprintf(w, "q%v\t%s\t%s\n", l, formatFloat(q[i]), kind)
	}
	mean, sd := stat.MeanStdDev(samples, nil)
	fmt.Fprintf(w, "mean\t%s\tsampled\n", formatFloat(mean))
	_, err = fmt.Fprintf(w, "sd\t%s\tsampled\n", formatFloat(sd))
	if ln, ok := p.(*prior.Lognormal); ok && ln.Mean() != 0 {
		// the sampler and the density disagree on the location
		_, err = fmt.Fprintf(w, "note\tsamples are exp(N(%v, %v^2)), quantiles follow the density shifted by %v\n",
			ln.Mean(), ln.Sigma(), ln.Mean())
	}
	return err
}

// density returns the normalized density for priors which have one.
func density(p prior.Prior) (func(float64) float64, bool) {
	switch p := p.(type) {
	case *prior.Tophat:
		lo, hi := p.Bounds()
		return func(x float64) float64 {
			if x < lo || x > hi {
				return 0
			}
			return 1 / (hi - lo)
		}, true
	case *prior.Lognormal:
		return func(x float64) float64 {
			return math.Exp(p.LogProbability([]float64{x}))
		}, true
	}
	return nil, false
}

// errNoFiniteSamples is returned if there is nothing to plot.
var errNoFiniteSamples = errors.New("no finite samples to plot")

// finiteValues drops infinite and NaN samples.
func finiteValues(s []float64) plotter.Values {
	v := make(plotter.Values, 0, len(s))
	for _, x := range s {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			v = append(v, x)
		}
	}
	return v
}

// plotCommand saves a histogram of samples with the density on top.
func plotCommand(src rand.Source, spec, fn string, n, bins int) error {
	if n < 1 || bins < 1 {
		return fmt.Errorf("number of samples and bins should be positive")
	}
	p, err := config.ParsePrior(spec)
	if err != nil {
		return err
	}
	v := finiteValues(p.Sample(src, n).RawMatrix().Data)
	if len(v) == 0 {
		return errNoFiniteSamples
	}
	if len(v) < n {
		log.Warningf("Dropped %d non-finite samples", n-len(v))
	}

	pl, err := plot.New()
	if err != nil {
		return err
	}
	pl.Title.Text = p.String()
	pl.X.Label.Text = "log value"
	pl.Y.Label.Text = "density"

	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	pl.Add(h)

	if f, ok := density(p); ok {
		df := plotter.NewFunction(f)
		df.Samples = 500
		df.Width = vg.Points(1.5)
		pl.Add(df)
		pl.Legend.Add("density", df)
	}

	log.Infof("Saving plot to %s", fn)
	return pl.Save(6*vg.Inch, 4*vg.Inch, fn)
}
