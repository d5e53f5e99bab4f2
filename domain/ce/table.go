package ce

import (
	"fmt"

	"cepop/domain/core"
)

// ResultRow is one simulated binary system. Survived, LambdaCE and
// DonorState are sub-outcomes of the common-envelope event: they are nil
// whenever CEOccurred is false, and consumers must respect that rather than
// coercing nil to a default.
type ResultRow struct {
	Key        core.JobKey `json:"key"`
	CEOccurred bool        `json:"ce_occurred"`
	Survived   *bool       `json:"survived_ce,omitempty"`
	LambdaCE   *float64    `json:"lambda_ce,omitempty"`
	DonorState *string     `json:"donor_state,omitempty"`
}

// CheckNulls verifies the null-propagation invariant on a single row.
func (r ResultRow) CheckNulls() error {
	if r.CEOccurred {
		return nil
	}
	if r.Survived != nil || r.LambdaCE != nil || r.DonorState != nil {
		return core.NewArtifactError("row", "sub-outcomes present on a system without a CE event")
	}
	return nil
}

// Table is a result artifact loaded into memory.
type Table struct {
	Rows []ResultRow `json:"rows"`
}

// Len returns the number of systems in the table.
func (t *Table) Len() int { return len(t.Rows) }

// Validate checks structural validity: at least one row, and the
// null-propagation invariant on every row.
func (t *Table) Validate() error {
	if t == nil || len(t.Rows) == 0 {
		return core.NewArtifactError("table", "no rows")
	}
	for i, row := range t.Rows {
		if err := row.CheckNulls(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// CEEvents returns only the rows where a common-envelope event occurred.
func (t *Table) CEEvents() []ResultRow {
	events := make([]ResultRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		if row.CEOccurred {
			events = append(events, row)
		}
	}
	return events
}

// OccurredCount counts CE events in the table.
func (t *Table) OccurredCount() int {
	n := 0
	for _, row := range t.Rows {
		if row.CEOccurred {
			n++
		}
	}
	return n
}

// SurvivedCount counts CE events whose binary survived the envelope phase.
func (t *Table) SurvivedCount() int {
	n := 0
	for _, row := range t.Rows {
		if row.Survived != nil && *row.Survived {
			n++
		}
	}
	return n
}

// Append merges another table into this one.
func (t *Table) Append(other *Table) {
	if other == nil {
		return
	}
	t.Rows = append(t.Rows, other.Rows...)
}

// Helpers for building nullable fields.
func BoolPtr(v bool) *bool          { return &v }
func Float64Ptr(v float64) *float64 { return &v }
func StringPtr(v string) *string    { return &v }
