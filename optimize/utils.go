package optimize

import (
	"bufio"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
)

// ReadFloats converts string of floats into slice of float64.
func ReadFloats(s string) ([]float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Split(bufio.ScanWords)
	var result []float64
	for scanner.Scan() {
		x, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return result, err
		}
		result = append(result, x)
	}
	return result, scanner.Err()
}

// globalSource draws from the package-level generator of
// golang.org/x/exp/rand.
type globalSource struct{}

func (globalSource) Uint64() uint64 { return rand.Uint64() }
func (globalSource) Seed(uint64)    {}

// newRand returns a generator reading from src, or from the global
// generator if src is nil.
func newRand(src rand.Source) *rand.Rand {
	if src == nil {
		src = globalSource{}
	}
	return rand.New(src)
}
