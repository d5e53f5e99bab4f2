package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"cepop/domain/ce"
	"cepop/domain/core"
)

// Reader dispatches on the artifact's extension. This is the reader the
// orchestrator is normally wired with.
type Reader struct {
	csv   *CSVReader
	excel *ExcelReader
}

func NewReader() *Reader {
	return &Reader{csv: NewCSVReader(), excel: NewExcelReader()}
}

// Read loads an artifact by extension: .csv or .xlsx.
func (r *Reader) Read(path string, key core.JobKey) (*ce.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.csv.Read(path, key)
	case ".xlsx":
		return r.excel.Read(path, key)
	}
	return nil, core.NewArtifactError(path, fmt.Sprintf("unsupported artifact format %q", filepath.Ext(path)))
}
