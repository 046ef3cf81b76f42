package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an exported workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

const maxSheetNameLen = 31

var sheetNameSanitizer = strings.NewReplacer(
	"[", "", "]", "", ":", "", "*", "", "?", "", "/", "-", "\\", "-",
)

// SheetName makes name acceptable to Excel: forbidden characters removed and
// truncated to 31 characters.
func SheetName(name string) string {
	name = strings.TrimSpace(sheetNameSanitizer.Replace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

// WriteCSV writes a header and rows, formatting each value with %v.
func WriteCSV(w io.Writer, header []string, rows [][]interface{}) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprintf("%v", v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteWorkbook renders the sheets into a single xlsx document, in order, with
// a bold frozen header row on each sheet.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]int, len(sheets))
	for i, s := range sheets {
		name := SheetName(s.Name)
		if n := used[strings.ToLower(name)]; n > 0 {
			name = SheetName(fmt.Sprintf("%s (%d)", name, n+1))
		}
		used[strings.ToLower(name)]++

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, s, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, s Sheet, headerStyle int) error {
	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}
	if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", name, err)
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
		}
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
