package artifact

import (
	"fmt"

	"cepop/domain/ce"
	"cepop/domain/core"

	"github.com/xuri/excelize/v2"
)

// ExcelReader reads XLSX result artifacts. The table lives on the first
// sheet, header row first, same columns as the CSV form.
type ExcelReader struct{}

func NewExcelReader() *ExcelReader {
	return &ExcelReader{}
}

// Read loads and structurally validates an XLSX artifact.
func (r *ExcelReader) Read(path string, key core.JobKey) (*ce.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, core.NewArtifactError(path, fmt.Sprintf("cannot open: %v", err))
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, core.NewArtifactError(path, "workbook has no sheets")
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, core.NewArtifactError(path, fmt.Sprintf("cannot read sheet %q: %v", sheet, err))
	}
	return parseRows(path, key, raw)
}
