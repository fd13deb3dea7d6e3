package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestBuildPreview(t *testing.T) {
	rows := [][]interface{}{{"name", "roll", "class"}}
	for i := 1; i <= 8; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("student %d", i), i, "BIT"})
	}

	preview, err := BuildPreview(workbook(t, rows), 0)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}

	if strings.Join(preview.Columns, ",") != "name,roll,class" {
		t.Errorf("Columns = %v", preview.Columns)
	}
	if len(preview.Rows) != DefaultPreviewRows {
		t.Fatalf("len(Rows) = %d, want %d", len(preview.Rows), DefaultPreviewRows)
	}
	if preview.Rows[0]["name"] != "student 1" || preview.Rows[4]["roll"] != "5" {
		t.Errorf("unexpected rows: %v", preview.Rows)
	}
	if preview.Stats.TotalRows != 8 || preview.Stats.TotalColumns != 3 {
		t.Errorf("Stats = %+v", preview.Stats)
	}
}

func TestBuildPreviewShortSheetAndBlankHeaders(t *testing.T) {
	rows := [][]interface{}{
		{"name", "", "name"},
		{"Asha", "x"},
	}

	preview, err := BuildPreview(workbook(t, rows), 5)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}

	want := []string{"name", "Unnamed: 1", "name.1"}
	for i, col := range want {
		if preview.Columns[i] != col {
			t.Errorf("Columns[%d] = %q, want %q", i, preview.Columns[i], col)
		}
	}
	if len(preview.Rows) != 1 || preview.Rows[0]["name.1"] != "" || preview.Rows[0]["Unnamed: 1"] != "x" {
		t.Errorf("Rows = %v", preview.Rows)
	}
}

func TestBuildPreviewErrors(t *testing.T) {
	if _, err := BuildPreview(strings.NewReader("plain text"), 5); !errors.Is(err, ErrUnreadable) {
		t.Errorf("error = %v, want ErrUnreadable", err)
	}
	if _, err := BuildPreview(workbook(t, nil), 5); !errors.Is(err, ErrEmptyWorkbook) {
		t.Errorf("error = %v, want ErrEmptyWorkbook", err)
	}
}

func TestHeaderNames(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"distinct", []string{"a", "b"}, []string{"a", "b"}},
		{"repeated", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"suffix already taken", []string{"a", "a", "a.1"}, []string{"a", "a.1", "a.1.1"}},
		{"suffix taken first", []string{"a.1", "a", "a"}, []string{"a.1", "a", "a.1.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := headerNames(tt.header)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("headerNames(%v) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
