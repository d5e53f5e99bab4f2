package core

import (
	"crypto/sha256"
	"fmt"
)

// Hash is a hex-encoded SHA256 digest used for registry fingerprints.
type Hash string

// HashOf computes the digest of a deterministic string representation.
func HashOf(data string) Hash {
	sum := sha256.Sum256([]byte(data))
	return Hash(fmt.Sprintf("%x", sum))
}

func (h Hash) String() string { return string(h) }
