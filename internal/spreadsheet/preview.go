package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultPreviewRows is how many data rows a preview returns
const DefaultPreviewRows = 5

var (
	ErrEmptyWorkbook = errors.New("workbook has no data")
	ErrUnreadable    = errors.New("file is not a readable spreadsheet")
)

// Stats summarises the size of the first sheet
type Stats struct {
	TotalRows    int `json:"total_rows"`
	TotalColumns int `json:"total_columns"`
}

// Preview is a read-only look at the first sheet: header names, leading rows, and counts
type Preview struct {
	Sheet   string              `json:"sheet"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Stats   Stats               `json:"stats"`
}

// BuildPreview reads the first sheet of an xlsx workbook. The first row is the header;
// TotalRows counts data rows only.
func BuildPreview(r io.Reader, limit int) (*Preview, error) {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	rows = trimTrailingEmpty(rows)
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	columns := headerNames(rows[0])
	data := rows[1:]

	preview := &Preview{
		Sheet:   sheet,
		Columns: columns,
		Rows:    make([]map[string]string, 0, min(limit, len(data))),
		Stats: Stats{
			TotalRows:    len(data),
			TotalColumns: len(columns),
		},
	}

	for _, row := range data[:min(limit, len(data))] {
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		preview.Rows = append(preview.Rows, record)
	}

	return preview, nil
}

// headerNames fills blank or repeated headers the way dataframe readers do.
// A generated name that collides with a later header is suffixed again.
func headerNames(header []string) []string {
	counts := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		for n := counts[name]; n > 0; n = counts[name] {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		}
		counts[name]++
		names[i] = name
	}
	return names
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlank(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
