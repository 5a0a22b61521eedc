package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for roster files that are neither XLSX nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported roster format")

// Parse parses an uploaded roster file, choosing the format from the file
// extension. Column convention: first column participant name, second column
// email. A leading header row is detected and skipped.
func Parse(filename string, r io.Reader) (*ImportResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".csv":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ParseXLSX parses the first sheet of an Excel workbook into participants.
func ParseXLSX(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return collect(rows), nil
}

// ParseCSV parses comma-separated roster data into participants.
func ParseCSV(r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return collect(records), nil
}

// collect turns raw rows into trimmed participants, dropping the header row
// and any row without a name.
func collect(rows [][]string) *ImportResult {
	result := &ImportResult{}

	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}

		var name, email string
		if len(row) > 0 {
			name = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			email = strings.TrimSpace(row[1])
		}

		if name == "" {
			result.SkippedRows++
			continue
		}

		result.Participants = append(result.Participants, Participant{
			Name:  name,
			Email: email,
		})
	}

	return result
}

// isHeaderRow reports whether the first row looks like column labels rather
// than data.
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "name" || first == "participant" || first == "participant name" || first == "full name"
}
