package rng

import (
	"hash/fnv"
	"math/rand"
)

// Source derives independent deterministic streams from a base seed. Two
// operations using the same base seed get decorrelated streams by folding
// the operation name into the stream seed.
type Source struct{}

// New creates a deterministic stream source.
func New() *Source {
	return &Source{}
}

// Stream returns a rand.Rand seeded by the operation name and base seed.
func (s *Source) Stream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
