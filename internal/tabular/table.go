package tabular

import (
	"fmt"
	"strings"
)

// Table is a header row plus string records, as read from a CSV file or the
// first sheet of an XLSX workbook. Values are kept raw; typing happens in the
// consumers that know which columns they need.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// NormalizeColumnName lowercases a header and strips separators so that
// "Item Code", "item_code" and "ITEM-CODE" all compare equal.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.TrimPrefix(name, "\ufeff")
	return columnNameSanitizer.Replace(name)
}

// Index returns the position of the first header matching any of the aliases,
// or -1 when none match.
func (t Table) Index(aliases ...string) int {
	if len(aliases) == 0 {
		return -1
	}
	targets := make(map[string]struct{}, len(aliases))
	for _, name := range aliases {
		targets[NormalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.Header {
		if _, ok := targets[NormalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// Value returns the trimmed cell at idx, or "" when idx is out of range.
func Value(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Len reports the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Concat stacks tables on top of each other using the first table's header.
// Columns are matched by normalized name, so files exported with a different
// column order still line up; cells for columns a table lacks are left empty.
// Rows are not deduplicated.
func Concat(name string, tables ...Table) (Table, error) {
	if len(tables) == 0 {
		return Table{Name: name}, nil
	}

	out := Table{
		Name:   name,
		Header: append([]string(nil), tables[0].Header...),
	}
	if len(out.Header) == 0 {
		return Table{}, fmt.Errorf("table %s has no header", tables[0].Name)
	}

	for _, t := range tables {
		mapping := make([]int, len(out.Header))
		for i, h := range out.Header {
			mapping[i] = t.Index(h)
		}
		for _, record := range t.Rows {
			row := make([]string, len(out.Header))
			for i, src := range mapping {
				if src >= 0 && src < len(record) {
					row[i] = record[src]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}
