package combat

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
)

// RNG is the single random source of a game. *rand.Rand satisfies it.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// NewRNG returns a math/rand source for the given seed.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// rollInt returns a uniform integer in [min, max].
func rollInt(rng RNG, min, max int) int {
	return min + rng.Intn(max-min+1)
}

func chance(rng RNG, p float64) bool {
	return rng.Float64() < p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds .5 towards +Inf, which is what the stat tables were tuned with.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
