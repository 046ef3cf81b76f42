package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile loads a .csv or .xlsx file into a Table named after the file.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, filepath.Base(path))
}

// Read dispatches on the extension of name.
func Read(r io.Reader, name string) (Table, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return ReadCSV(r, name)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, name)
	default:
		return Table{}, fmt.Errorf("unsupported file extension %s for %s", ext, name)
	}
}

// ReadCSV reads a comma separated file. Ragged records are accepted.
func ReadCSV(r io.Reader, name string) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, fmt.Errorf("%s is empty", name)
		}
		return Table{}, fmt.Errorf("failed to read CSV header of %s: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := Table{Name: name, Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("failed to read CSV record of %s: %w", name, err)
		}
		t.Rows = append(t.Rows, record)
	}

	return t, nil
}

// ReadXLSX reads the first sheet of a workbook. Raw cell values are used, so
// date cells come back as Excel serial day numbers rather than display text.
func ReadXLSX(r io.Reader, name string) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("xlsx file %s has no sheets", name)
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	t := Table{Name: name}
	first := true
	for rows.Next() {
		record, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return Table{}, fmt.Errorf("failed to read row from %s: %w", name, err)
		}
		if first {
			t.Header = record
			first = false
			continue
		}
		if isBlank(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	if err := rows.Error(); err != nil {
		return Table{}, fmt.Errorf("error iterating rows in %s: %w", name, err)
	}
	if first {
		return Table{}, fmt.Errorf("%s is empty", name)
	}

	return t, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
