package ports

import (
	"math/rand"
)

// RNG provides seeded random number generation for deterministic
// resampling. Streams for the same (name, seed) pair must produce
// identical sequences across runs, so published tables are regenerable.
type RNG interface {
	// Stream creates a deterministic random number generator for a named
	// operation.
	Stream(name string, seed int64) *rand.Rand
}
