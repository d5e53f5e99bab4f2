package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cepop/domain/core"
	"cepop/ports"

	"github.com/jmoiron/sqlx"
)

// advisoryLockKey guards the job_records table against concurrent
// orchestrators. One sweep per database.
const advisoryLockKey = 0x6365706F70 // "cepop"

const schema = `
CREATE TABLE IF NOT EXISTS job_records (
	metallicity   DOUBLE PRECISION NOT NULL,
	alpha_ce      DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT NOT NULL DEFAULT '',
	artifact_path TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (metallicity, alpha_ce)
)`

// jobRecordRow is the DB shape of a job record.
type jobRecordRow struct {
	Metallicity  float64        `db:"metallicity"`
	AlphaCE      float64        `db:"alpha_ce"`
	Status       string         `db:"status"`
	Attempts     int            `db:"attempts"`
	LastError    string         `db:"last_error"`
	ArtifactPath string         `db:"artifact_path"`
	CreatedAt    core.Timestamp `db:"created_at"`
	UpdatedAt    core.Timestamp `db:"updated_at"`
}

func (r jobRecordRow) toRecord() ports.JobRecord {
	return ports.JobRecord{
		Key:          core.JobKey{Metallicity: r.Metallicity, AlphaCE: r.AlphaCE},
		Status:       ports.JobStatus(r.Status),
		Attempts:     r.Attempts,
		LastError:    r.LastError,
		ArtifactPath: r.ArtifactPath,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// CheckpointRepository implements ports.CheckpointStore on PostgreSQL.
// Mutual exclusion uses a session-level advisory lock, so the guarantee
// holds across hosts sharing one database, not just one filesystem.
type CheckpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository ensures the schema exists, takes the advisory
// lock and returns the repository. A second orchestrator against the same
// database gets core.ErrStoreLocked.
func NewCheckpointRepository(ctx context.Context, db *sqlx.DB) (*CheckpointRepository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensuring job_records schema: %w", err)
	}

	var locked bool
	if err := db.GetContext(ctx, &locked, `SELECT pg_try_advisory_lock($1)`, advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquiring advisory lock: %w", err)
	}
	if !locked {
		return nil, core.ErrStoreLocked
	}

	return &CheckpointRepository{db: db}, nil
}

// Load returns every persisted record keyed by job identity.
func (r *CheckpointRepository) Load(ctx context.Context) (map[core.JobKey]ports.JobRecord, error) {
	var rows []jobRecordRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT metallicity, alpha_ce, status, attempts, last_error, artifact_path, created_at, updated_at
		FROM job_records
	`)
	if err != nil {
		return nil, err
	}

	records := make(map[core.JobKey]ports.JobRecord, len(rows))
	for _, row := range rows {
		rec := row.toRecord()
		records[rec.Key] = rec
	}
	return records, nil
}

// Get returns one record, or core.ErrRecordNotFound.
func (r *CheckpointRepository) Get(ctx context.Context, key core.JobKey) (ports.JobRecord, error) {
	var row jobRecordRow
	err := r.db.GetContext(ctx, &row, `
		SELECT metallicity, alpha_ce, status, attempts, last_error, artifact_path, created_at, updated_at
		FROM job_records
		WHERE metallicity = $1 AND alpha_ce = $2
	`, key.Metallicity, key.AlphaCE)

	if errors.Is(err, sql.ErrNoRows) {
		return ports.JobRecord{}, fmt.Errorf("%w: %s", core.ErrRecordNotFound, key)
	}
	if err != nil {
		return ports.JobRecord{}, err
	}
	return row.toRecord(), nil
}

// Put upserts the whole record in one statement, so a reader never sees a
// half-updated row.
func (r *CheckpointRepository) Put(ctx context.Context, rec ports.JobRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_records (metallicity, alpha_ce, status, attempts, last_error, artifact_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (metallicity, alpha_ce) DO UPDATE
		SET status = EXCLUDED.status,
		    attempts = EXCLUDED.attempts,
		    last_error = EXCLUDED.last_error,
		    artifact_path = EXCLUDED.artifact_path,
		    updated_at = EXCLUDED.updated_at
	`, rec.Key.Metallicity, rec.Key.AlphaCE, string(rec.Status), rec.Attempts,
		rec.LastError, rec.ArtifactPath, rec.CreatedAt.Time(), rec.UpdatedAt.Time())
	return err
}

// Close releases the advisory lock. The *sqlx.DB stays open; the caller
// owns its lifecycle.
func (r *CheckpointRepository) Close() error {
	_, err := r.db.Exec(`SELECT pg_advisory_unlock($1)`, advisoryLockKey)
	return err
}
