package artifact

import (
	"encoding/csv"
	"fmt"
	"os"

	"cepop/domain/ce"
	"cepop/domain/core"
)

// CSVReader reads comma-separated result artifacts.
type CSVReader struct{}

func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

// Read loads and structurally validates a CSV artifact.
func (r *CSVReader) Read(path string, key core.JobKey) (*ce.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewArtifactError(path, fmt.Sprintf("cannot open: %v", err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are caught during parsing
	raw, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewArtifactError(path, fmt.Sprintf("malformed csv: %v", err))
	}
	return parseRows(path, key, raw)
}
