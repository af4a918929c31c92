package combat

import "math/rand/v2"

// Rand is the random source an evaluation draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a freshly seeded PCG source. Each concurrent evaluation
// needs its own.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededRand returns a reproducible source for trials and tests.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// bernoulli draws only when the outcome is actually uncertain.
func bernoulli(r Rand, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return r.Float64() < p
	}
}

func uniform(r Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*r.Float64()
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
