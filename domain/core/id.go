package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies a single orchestrator run
type RunID ID

func NewRunID() RunID           { return RunID(NewID()) }
func (id RunID) String() string { return ID(id).String() }

// JobKey is the identity of one simulation job: metallicity and
// common-envelope efficiency. Its string form is stable so persisted
// checkpoint files stay human-inspectable.
type JobKey struct {
	Metallicity float64 `json:"metallicity" db:"metallicity"`
	AlphaCE     float64 `json:"alpha_ce" db:"alpha_ce"`
}

func (k JobKey) String() string {
	return fmt.Sprintf("Z=%g|alpha=%g", k.Metallicity, k.AlphaCE)
}

// ParseJobKey parses the String form back into a JobKey.
func ParseJobKey(s string) (JobKey, error) {
	var k JobKey
	parts := strings.Split(s, "|")
	if len(parts) != 2 {
		return k, fmt.Errorf("%w: job key %q", ErrInvalidInput, s)
	}
	if _, err := fmt.Sscanf(parts[0], "Z=%g", &k.Metallicity); err != nil {
		return k, fmt.Errorf("%w: job key %q: %v", ErrInvalidInput, s, err)
	}
	if _, err := fmt.Sscanf(parts[1], "alpha=%g", &k.AlphaCE); err != nil {
		return k, fmt.Errorf("%w: job key %q: %v", ErrInvalidInput, s, err)
	}
	return k, nil
}
