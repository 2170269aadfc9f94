package simulator

import "math/rand/v2"

// Rand is the random source behind every stochastic model in a tick.
// *rand.Rand satisfies it; tests may substitute a scripted source.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a deterministic PCG source for the given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}
