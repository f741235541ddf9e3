package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/exp/rand"

	"bitbucket.org/Davydov/hyperprior/config"
	"bitbucket.org/Davydov/hyperprior/optimize"
	"bitbucket.org/Davydov/hyperprior/prior"
)

func appreq(a, b, diff float64) bool {
	return math.Abs(a-b) < diff
}

func TestSampleCommand(tst *testing.T) {
	var buf bytes.Buffer
	err := sampleCommand(&buf, rand.NewSource(1), []string{"tophat:-3,3", "lognormal:0.5"}, 20)
	if err != nil {
		tst.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		tst.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, l := range lines {
		v, err := optimize.ReadFloats(l)
		if err != nil {
			tst.Fatal(err)
		}
		if len(v) != 2 {
			tst.Fatalf("expected 2 columns, got %q", l)
		}
		if v[0] < -3 || v[0] > 3 {
			tst.Error("tophat sample out of bounds:", v[0])
		}
		if v[1] <= 0 {
			tst.Error("lognormal sample should be positive:", v[1])
		}
	}

	var again bytes.Buffer
	sampleCommand(&again, rand.NewSource(1), []string{"tophat:-3,3", "lognormal:0.5"}, 20)
	if again.String() != buf.String() {
		tst.Error("same seed should give the same samples")
	}
}

func TestSampleCommandErrors(tst *testing.T) {
	var buf bytes.Buffer
	if err := sampleCommand(&buf, nil, []string{"cauchy:1"}, 10); err == nil {
		tst.Error("unknown prior should fail")
	}
	if err := sampleCommand(&buf, nil, []string{"tophat:3,-3"}, 10); err == nil {
		tst.Error("invalid bounds should fail")
	}
	if err := sampleCommand(&buf, nil, []string{"horseshoe"}, 0); err == nil {
		tst.Error("zero samples should fail")
	}
}

func TestEvalCommand(tst *testing.T) {
	var buf bytes.Buffer
	if err := evalCommand(&buf, "lognormal:1", []float64{1, -1}, false); err != nil {
		tst.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		tst.Fatalf("expected 2 lines, got %d", len(lines))
	}
	v, err := optimize.ReadFloats(lines[0])
	if err != nil {
		tst.Fatal(err)
	}
	if !appreq(v[1], -0.918939, 1e-6) {
		tst.Error("expected -0.918939, got", v[1])
	}
	// d/dx at x=1 is -1
	if !appreq(v[2], -1, 1e-6) {
		tst.Error("expected gradient -1, got", v[2])
	}
	if !strings.Contains(lines[1], "-Inf") {
		tst.Error("expected -Inf outside of the support, got", lines[1])
	}
}

func TestEvalCommandJoint(tst *testing.T) {
	var buf bytes.Buffer
	if err := evalCommand(&buf, "tophat:-1,1", []float64{0, 0.5, 2}, true); err != nil {
		tst.Fatal(err)
	}
	fields := strings.Fields(buf.String())
	if len(fields) != 4 {
		tst.Fatalf("expected log prior and 3 gradients, got %q", buf.String())
	}
	for _, f := range fields {
		if f != "-Inf" {
			tst.Error("expected -Inf, got", f)
		}
	}
}

func TestQuantiles(tst *testing.T) {
	p, _ := prior.NewTophat(-3, 3)
	q, analytic := quantiles(p, nil, []float64{0, 0.5, 1})
	if !analytic {
		tst.Error("tophat quantiles should be analytic")
	}
	if q[0] != -3 || q[1] != 0 || q[2] != 3 {
		tst.Error("wrong tophat quantiles:", q)
	}

	h := prior.NewHorseshoe(0.1)
	s := sortedSamples(h, rand.NewSource(3), 1001)
	q, analytic = quantiles(h, s, []float64{0.5})
	if analytic {
		tst.Error("horseshoe quantiles should be empirical")
	}
	if q[0] != s[500] {
		tst.Error("expected the median sample, got", q[0])
	}
}

func TestDescribeCommand(tst *testing.T) {
	var buf bytes.Buffer
	if err := describeCommand(&buf, rand.NewSource(1), "lognormal:1", 1000); err != nil {
		tst.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"prior\tlognormal:1,0", "support\t0\t+Inf", "q0.5\t1.000000\tanalytic", "\nmean\t", "\tsampled\n", "\nsd\t"} {
		if !strings.Contains(out, s) {
			tst.Errorf("%q not found in %q", s, out)
		}
	}
	if strings.Contains(out, "note\t") {
		tst.Error("unexpected note for a zero mean:", out)
	}
}

func TestDescribeShiftedLognormal(tst *testing.T) {
	var buf bytes.Buffer
	if err := describeCommand(&buf, rand.NewSource(1), "lognormal:1,2", 10000); err != nil {
		tst.Fatal(err)
	}
	out := buf.String()
	// median of the shifted density is 2 + exp(0)
	for _, s := range []string{"q0.5\t3.000000\tanalytic", "note\tsamples are exp(N(2, 1^2))"} {
		if !strings.Contains(out, s) {
			tst.Errorf("%q not found in %q", s, out)
		}
	}
	// sampled mean of exp(N(2, 1)) is exp(2.5)
	for _, l := range strings.Split(out, "\n") {
		if f := strings.Split(l, "\t"); f[0] == "mean" {
			v, err := strconv.ParseFloat(f[1], 64)
			if err != nil {
				tst.Fatal(err)
			}
			if !appreq(v, math.Exp(2.5), 1) {
				tst.Error("expected sampled mean near exp(2.5), got", v)
			}
		}
	}
}

func TestDensity(tst *testing.T) {
	if _, ok := density(prior.NewHorseshoe(0.1)); ok {
		tst.Error("horseshoe has no normalized density")
	}
	for _, spec := range []string{"tophat:-2,1", "lognormal:0.7"} {
		p, err := config.ParsePrior(spec)
		if err != nil {
			tst.Fatal(err)
		}
		f, ok := density(p)
		if !ok {
			tst.Fatal("expected density for", spec)
		}
		// midpoint rule
		sum := 0.0
		h := 1e-3
		for x := -5 + h/2; x < 20; x += h {
			sum += f(x) * h
		}
		if !appreq(sum, 1, 1e-2) {
			tst.Errorf("%s: density integrates to %v", spec, sum)
		}
	}
}

func TestFiniteValues(tst *testing.T) {
	v := finiteValues([]float64{1, math.Inf(1), math.NaN(), math.Inf(-1), 2})
	if len(v) != 2 || v[0] != 1 || v[1] != 2 {
		tst.Error("expected [1 2], got", v)
	}
}

func TestPlotCommand(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping plot rendering in short mode")
	}
	for _, spec := range []string{"tophat:-3,3", "horseshoe", "lognormal:0.5"} {
		fn := filepath.Join(tst.TempDir(), "prior.png")
		if err := plotCommand(rand.NewSource(1), spec, fn, 1000, 20); err != nil {
			tst.Fatal(spec, ": ", err)
		}
		st, err := os.Stat(fn)
		if err != nil {
			tst.Fatal(err)
		}
		if st.Size() == 0 {
			tst.Error("empty plot for", spec)
		}
	}
}
