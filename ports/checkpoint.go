package ports

import (
	"context"

	"cepop/domain/core"
)

// JobStatus is the lifecycle state of a job record.
type JobStatus string

const (
	StatusPending  JobStatus = "pending"
	StatusRunning  JobStatus = "running"
	StatusComplete JobStatus = "complete"
	StatusFailed   JobStatus = "failed"
)

// JobRecord is the persisted unit of resumability, one per JobSpec.
type JobRecord struct {
	Key          core.JobKey    `json:"key"`
	Status       JobStatus      `json:"status"`
	Attempts     int            `json:"attempts"`
	LastError    string         `json:"last_error,omitempty"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	CreatedAt    core.Timestamp `json:"created_at"`
	UpdatedAt    core.Timestamp `json:"updated_at"`
}

// CheckpointStore persists job records. Implementations must apply each Put
// as an atomic whole-record write (never a partial field update) and guard
// the store against concurrent orchestrators with a mutual-exclusion
// primitive, so two processes never mark the same job running.
type CheckpointStore interface {
	// Load returns all persisted records keyed by job identity.
	Load(ctx context.Context) (map[core.JobKey]JobRecord, error)

	// Get returns a single record, or core.ErrRecordNotFound.
	Get(ctx context.Context, key core.JobKey) (JobRecord, error)

	// Put durably writes one record before returning.
	Put(ctx context.Context, rec JobRecord) error

	// Close releases the store's exclusion primitive.
	Close() error
}
