package prior

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

func TestTophatConstruction(tst *testing.T) {
	bounds := [][2]float64{
		{0, 0},
		{1, -1},
		{3, 2.9999},
		{math.NaN(), 1},
		{-1, math.NaN()},
	}
	for _, b := range bounds {
		if _, err := NewTophat(b[0], b[1]); !errors.Is(err, ErrInvalidBounds) {
			tst.Errorf("NewTophat(%v, %v): expected ErrInvalidBounds, got %v", b[0], b[1], err)
		}
	}

	t, err := NewTophat(-1e-9, 1e-9)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if lo, hi := t.Bounds(); lo != -1e-9 || hi != 1e-9 {
		tst.Errorf("Wrong bounds: %v, %v", lo, hi)
	}
}

func TestTophatLogProbability(tst *testing.T) {
	t, err := NewTophat(-3, 3)
	if err != nil {
		tst.Fatal(err)
	}
	inside := [][]float64{{-3}, {3}, {0}, {-2.5, 2.5}, {}}
	for _, x := range inside {
		if l := t.LogProbability(x); l != 0 {
			tst.Errorf("LogProbability(%v)=%v, expected 0", x, l)
		}
		for _, g := range t.Gradient(x) {
			if g != 0 {
				tst.Errorf("Gradient(%v)=%v, expected 0", x, g)
			}
		}
	}
	outside := [][]float64{{5}, {-3.0001}, {0, 4}, {math.NaN()}, {math.Inf(1)}}
	for _, x := range outside {
		if l := t.LogProbability(x); !math.IsInf(l, -1) {
			tst.Errorf("LogProbability(%v)=%v, expected -Inf", x, l)
		}
		for _, g := range t.Gradient(x) {
			if !math.IsInf(g, -1) {
				tst.Errorf("Gradient(%v)=%v, expected -Inf", x, g)
			}
		}
	}
}

func TestTophatScenario(tst *testing.T) {
	t, err := NewTophat(-3, 3)
	if err != nil {
		tst.Fatal(err)
	}
	if l := t.LogProbability([]float64{0}); l != 0 {
		tst.Error("log_probability([0]) =", l)
	}
	if l := t.LogProbability([]float64{5}); !math.IsInf(l, -1) {
		tst.Error("log_probability([5]) =", l)
	}
	if g := t.Gradient([]float64{0}); g[0] != 0 {
		tst.Error("gradient([0]) =", g)
	}
	if g := t.Gradient([]float64{5}); !math.IsInf(g[0], -1) {
		tst.Error("gradient([5]) =", g)
	}
	for _, v := range values(t, rand.NewSource(1), 1000) {
		if v < -3 || v > 3 {
			tst.Fatal("Sample out of bounds:", v)
		}
	}
}

func TestTophatSampleMean(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping test in short mode.")
	}
	bounds := [][2]float64{{-3, 3}, {0, 1}, {-10, -2}}
	for i, b := range bounds {
		t, err := NewTophat(b[0], b[1])
		if err != nil {
			tst.Fatal(err)
		}
		v := values(t, rand.NewSource(uint64(i+1)), 20000)
		for _, x := range v {
			if x < b[0] || x > b[1] {
				tst.Fatal("Sample out of bounds:", x)
			}
		}
		mean := stat.Mean(v, nil)
		// ~8 standard errors
		tol := 8 * (b[1] - b[0]) / math.Sqrt(12) / math.Sqrt(float64(len(v)))
		if !appreq(mean, (b[0]+b[1])/2, tol) {
			tst.Errorf("[%v, %v]: sample mean %v, expected %v", b[0], b[1], mean, (b[0]+b[1])/2)
		}
	}
}

func TestTophatQuantile(tst *testing.T) {
	t, err := NewTophat(-3, 3)
	if err != nil {
		tst.Fatal(err)
	}
	if q := t.Quantile(0.5); !appreq(q, 0, smallDiff) {
		tst.Error("median:", q)
	}
	if q := t.Quantile(0.75); !appreq(q, 1.5, smallDiff) {
		tst.Error("0.75 quantile:", q)
	}
	if s := t.String(); s != "tophat:-3,3" {
		tst.Error("String:", s)
	}
}
