package artifact

import (
	"fmt"
	"strconv"
	"strings"

	"cepop/domain/ce"
	"cepop/domain/core"
)

// Required columns of a result artifact. Extra columns are ignored.
const (
	colOccurred = "ce_occurred"
	colSurvived = "survived_ce"
	colLambda   = "lambda_ce"
	colDonor    = "donor_state"
)

// parseRows turns raw tabular data (header row first) into a validated
// table. Structural rules: the four required columns present, at least one
// data row, every value parseable, and no sub-outcome on a row without a
// CE event. Any breach is a core.ErrValidationFailure.
func parseRows(name string, key core.JobKey, raw [][]string) (*ce.Table, error) {
	if len(raw) == 0 {
		return nil, core.NewArtifactError(name, "empty artifact")
	}

	cols := make(map[string]int, len(raw[0]))
	for i, h := range raw[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colOccurred, colSurvived, colLambda, colDonor} {
		if _, ok := cols[required]; !ok {
			return nil, core.NewArtifactError(name, fmt.Sprintf("missing column %q", required))
		}
	}
	if len(raw) == 1 {
		return nil, core.NewArtifactError(name, "no data rows")
	}

	table := &ce.Table{Rows: make([]ce.ResultRow, 0, len(raw)-1)}
	for i, rec := range raw[1:] {
		row, err := parseRow(key, cols, rec)
		if err != nil {
			return nil, core.NewArtifactError(name, fmt.Sprintf("row %d: %v", i+1, err))
		}
		if err := row.CheckNulls(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, i+1, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseRow(key core.JobKey, cols map[string]int, rec []string) (ce.ResultRow, error) {
	row := ce.ResultRow{Key: key}

	occurred, err := cell(cols, rec, colOccurred)
	if err != nil {
		return row, err
	}
	row.CEOccurred, err = parseBool(occurred)
	if err != nil {
		return row, fmt.Errorf("%s: %v", colOccurred, err)
	}

	if v, err := cell(cols, rec, colSurvived); err != nil {
		return row, err
	} else if v != "" {
		b, err := parseBool(v)
		if err != nil {
			return row, fmt.Errorf("%s: %v", colSurvived, err)
		}
		row.Survived = ce.BoolPtr(b)
	}

	if v, err := cell(cols, rec, colLambda); err != nil {
		return row, err
	} else if v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return row, fmt.Errorf("%s: %v", colLambda, err)
		}
		row.LambdaCE = ce.Float64Ptr(f)
	}

	if v, err := cell(cols, rec, colDonor); err != nil {
		return row, err
	} else if v != "" {
		row.DonorState = ce.StringPtr(v)
	}

	return row, nil
}

func cell(cols map[string]int, rec []string, name string) (string, error) {
	i := cols[name]
	if i >= len(rec) {
		return "", fmt.Errorf("short row, no %s value", name)
	}
	return strings.TrimSpace(rec[i]), nil
}

// parseBool accepts the spellings both the Go and pandas sides produce.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
