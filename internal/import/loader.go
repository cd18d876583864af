package import_pkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/logging"
)

// ErrEmptyFile is wrapped by LoadError when a source has no columns or
// no data rows.
var ErrEmptyFile = errors.New("file is empty or has no columns")

// ErrUnsupportedFormat is wrapped by LoadError for legacy binary
// spreadsheets.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// LoadError reports the failing path and the underlying cause
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a tabular file, dispatching on its extension: .xlsx/.xlsm
// read the first sheet, anything else is treated as delimited text.
func Load(path string) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadSpreadsheet(path)
	case ".xls":
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: convert .xls to .xlsx or csv", ErrUnsupportedFormat)}
	default:
		return LoadDelimited(path)
	}
}

// LoadDelimited reads a delimited text file, detecting its encoding and
// separator.
func LoadDelimited(path string) (*dataset.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	table, format, err := ParseDelimited(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	logging.Default().Info().
		Str("path", path).
		Str("separator", format.SeparatorName()).
		Str("encoding", format.Encoding).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Msg("Loaded delimited file")
	return table, nil
}

// LoadSpreadsheet reads the first sheet of an Excel workbook. The first
// row is the header.
func LoadSpreadsheet(path string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyFile}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)}
	}

	table, err := tableFromRecords(rows)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	logging.Default().Info().
		Str("path", path).
		Str("sheet", sheets[0]).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Msg("Loaded spreadsheet")
	return table, nil
}

// tableFromRecords builds a table from a header row followed by data rows
func tableFromRecords(records [][]string) (*dataset.Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := make([]string, 0, len(records[0]))
	for _, col := range records[0] {
		header = append(header, strings.TrimSpace(col))
	}
	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, ErrEmptyFile
	}

	table := dataset.New(header...)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		table.Append(rec)
	}

	if table.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return table, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
