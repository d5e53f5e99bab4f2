package ports

import (
	"cepop/domain/ce"
	"cepop/domain/core"
)

// ArtifactReader loads a result artifact and verifies its structure:
// non-empty, required columns present, every row parseable, and the
// null-propagation invariant intact. A structurally invalid artifact is a
// core.ErrValidationFailure, never a silently empty table.
type ArtifactReader interface {
	Read(path string, key core.JobKey) (*ce.Table, error)
}
