package optimize

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestUniformProposal(tst *testing.T) {
	f := UniformProposal(rand.NewSource(1), 2)
	for i := 0; i < 1000; i++ {
		if v := f(10); v < 9 || v > 11 {
			tst.Fatal("Proposal is out of range:", v)
		}
	}
}

func TestNormalProposalReproducible(tst *testing.T) {
	f := NormalProposal(rand.NewSource(5), 0.1)
	g := NormalProposal(rand.NewSource(5), 0.1)
	for i := 0; i < 100; i++ {
		if a, b := f(1), g(1); a != b {
			tst.Fatal("Proposals differ with the same seed:", a, b)
		}
	}
	// global source
	if v := NormalProposal(nil, 1)(0); math.IsNaN(v) {
		tst.Error("NaN proposal")
	}
}

func TestProposalPanics(tst *testing.T) {
	defer func() {
		if recover() == nil {
			tst.Error("Expected a panic for sd=0")
		}
	}()
	NormalProposal(nil, 0)
}
