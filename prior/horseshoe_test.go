package prior

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestHorseshoeLogProbability(tst *testing.T) {
	for _, scale := range []float64{0.01, 0.1, 1.0} {
		h := NewHorseshoe(scale)
		for _, theta := range []float64{-2, -1, 1, 2} {
			expected := math.Log(math.Log(1 + 3*math.Pow(scale/math.Exp(theta), 2)))
			l := h.LogProbability([]float64{theta})
			if !appreq(l, expected, smallDiff) {
				tst.Errorf("scale=%v, theta=%v: expected %v, got %v", scale, theta, expected, l)
			}
		}
	}
}

func TestHorseshoeSingular(tst *testing.T) {
	h := NewHorseshoe(DefaultHorseshoeScale)
	for _, x := range [][]float64{{0}, {1, 0}, {0, math.Inf(-1)}} {
		if l := h.LogProbability(x); !math.IsInf(l, 1) {
			tst.Errorf("LogProbability(%v)=%v, expected +Inf", x, l)
		}
	}
	for _, x := range [][]float64{{1e-300}, {-1}, {1, 2}} {
		if l := h.LogProbability(x); math.IsInf(l, 1) {
			tst.Errorf("LogProbability(%v) is +Inf", x)
		}
	}
}

func TestHorseshoeScenario(tst *testing.T) {
	h := NewHorseshoe(0.1)
	if l := h.LogProbability([]float64{0.0}); !math.IsInf(l, 1) {
		tst.Error("log_probability([0]) =", l)
	}
	l := h.LogProbability([]float64{1.0})
	if math.IsInf(l, 0) || math.IsNaN(l) {
		tst.Fatal("log_probability([1]) is not finite:", l)
	}
	expected := math.Log(math.Log(1 + 3*math.Pow(0.1/math.E, 2)))
	if !appreq(l, expected, smallDiff) {
		tst.Errorf("log_probability([1]): expected %v, got %v", expected, l)
	}
}

func TestHorseshoeSum(tst *testing.T) {
	h := NewHorseshoe(0.3)
	a := h.LogProbability([]float64{-1})
	b := h.LogProbability([]float64{2})
	if ab := h.LogProbability([]float64{-1, 2}); !appreq(ab, a+b, smallDiff) {
		tst.Errorf("expected %v, got %v", a+b, ab)
	}
}

func TestHorseshoeGradient(tst *testing.T) {
	for _, scale := range []float64{0.01, 0.1, 1.0} {
		h := NewHorseshoe(scale)
		for _, theta := range []float64{-3, -0.5, 0.7, 2, 5} {
			g := h.Gradient([]float64{theta})[0]
			ng := numGrad(h, theta)
			if !appreq(g, ng, 1e-4*math.Max(1, math.Abs(ng))) {
				tst.Errorf("scale=%v, theta=%v: gradient %v, finite difference %v", scale, theta, g, ng)
			}
		}
	}
	// limits
	h := NewHorseshoe(0.1)
	if g := h.Gradient([]float64{1000})[0]; g != -2 {
		tst.Error("gradient at large theta:", g)
	}
	if g := h.Gradient([]float64{-1000})[0]; g != 0 {
		tst.Error("gradient at small theta:", g)
	}
}

func TestHorseshoeSample(tst *testing.T) {
	shared := values(NewHorseshoe(0.1), rand.NewSource(3), 200)
	indep := values(NewIndependentHorseshoe(0.1), rand.NewSource(3), 200)
	for i := range shared {
		if math.IsNaN(shared[i]) || math.IsInf(shared[i], 0) {
			tst.Fatal("non-finite sample:", shared[i])
		}
	}
	// Cauchy variates are drawn first, so both variants use the
	// same first normal draw.
	if shared[0] != indep[0] {
		tst.Errorf("first samples differ: %v vs %v", shared[0], indep[0])
	}
	same := true
	for i := range shared {
		if shared[i] != indep[i] {
			same = false
		}
	}
	if same {
		tst.Error("independent samples are identical to the shared ones")
	}
	if s := NewIndependentHorseshoe(0.5).String(); s != "horseshoe-indep:0.5" {
		tst.Error("String:", s)
	}
}

// sharedOffsets replays the Cauchy draws of Sample with the same seed
// and returns sample_i - log(lambda_i*scale) and the normal variate
// drawn after the Cauchy column.
func sharedOffsets(h *Horseshoe, seed uint64, n int) ([]float64, float64) {
	v := values(h, rand.NewSource(seed), n)
	src := rand.NewSource(seed)
	cauchy := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 1, Src: src}
	offsets := make([]float64, n)
	for i := range offsets {
		lambda := math.Abs(cauchy.Rand())
		offsets[i] = v[i] - math.Log(lambda*h.Scale())
	}
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: src}.Rand()
	return offsets, z
}

func TestHorseshoeSharedNormal(tst *testing.T) {
	for _, scale := range []float64{0.1, 1} {
		offsets, z := sharedOffsets(NewHorseshoe(scale), 7, 50)
		for i, o := range offsets {
			if !appreq(o, math.Log(math.Abs(z)), 1e-9) {
				tst.Errorf("scale=%v, sample %v: offset %v, expected log|z|=%v", scale, i, o, math.Log(math.Abs(z)))
			}
		}
	}

	offsets, _ := sharedOffsets(NewIndependentHorseshoe(0.1), 7, 50)
	distinct := false
	for _, o := range offsets[1:] {
		if !appreq(o, offsets[0], 1e-9) {
			distinct = true
		}
	}
	if !distinct {
		tst.Error("independent samples share the normal variate")
	}
}
