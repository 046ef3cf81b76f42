package replenishment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runReport(t *testing.T) *Report {
	t.Helper()
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	report, err := engine.Run(context.Background(), engineInput())
	require.NoError(t, err)
	return report
}

func TestReport_Columns(t *testing.T) {
	report := runReport(t)

	assert.Equal(t, []string{
		"location", "item_code", "item_name", "category", "brand",
		"qty_2024-02", "qty_2024-03", "qty_2024-04",
		"mean", "std", "wma",
		"metric", "contribution_pct", "cumulative_pct", "ratio", "abc_class",
		"min_stock", "safety_stock", "rop", "max_stock", "volatility",
		"stock", "hub_stock", "network_stock", "network_demand",
		"add_stock", "suggested_po", "restock", "status",
	}, report.Columns())
}

func TestReport_Values(t *testing.T) {
	report := runReport(t)
	cols := report.Columns()
	col := func(name string) int {
		for i, c := range cols {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	jx := report.Values(findRow(t, report.Rows, "Jakarta", "X"))
	require.Len(t, jx, len(cols))
	assert.Equal(t, "Jakarta", jx[col("location")])
	assert.Equal(t, 20.0, jx[col("qty_2024-03")])
	assert.Equal(t, int64(16), jx[col("min_stock")])
	assert.Equal(t, int64(5), jx[col("safety_stock")])
	assert.Equal(t, int64(22), jx[col("rop")])
	assert.Equal(t, int64(23), jx[col("max_stock")])
	assert.Equal(t, "-", jx[col("add_stock")])
	assert.Equal(t, "B", jx[col("abc_class")])

	jy := report.Values(findRow(t, report.Rows, "Jakarta", "Y"))
	assert.Equal(t, 2.5, jy[col("add_stock")])
}

func TestReport_Partition(t *testing.T) {
	report := runReport(t)

	parts := report.Partition()
	require.Len(t, parts, 2)
	assert.Equal(t, "Jakarta", parts[0].Location)
	assert.Equal(t, "Surabaya", parts[1].Location)

	var total int
	for _, p := range parts {
		for _, r := range p.Rows {
			assert.Equal(t, p.Location, r.Location)
		}
		total += len(p.Rows)
	}
	assert.Equal(t, len(report.Rows), total)
	assert.Equal(t, []string{"Jakarta", "Surabaya"}, report.Locations())
}

func TestReport_Sheets(t *testing.T) {
	report := runReport(t)

	sheets := report.Sheets()
	require.Len(t, sheets, 3)
	assert.Equal(t, "Jakarta", sheets[0].Name)
	assert.Equal(t, "Surabaya", sheets[1].Name)
	assert.Equal(t, AllSheet, sheets[2].Name)
	assert.Len(t, sheets[0].Rows, 3)
	assert.Len(t, sheets[2].Rows, 6)
	assert.Equal(t, sheets[0].Rows[0], sheets[2].Rows[0])
}

func TestReport_StageSheets(t *testing.T) {
	report := runReport(t)

	stages := report.StageSheets()
	require.Len(t, stages, 4)

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
		for _, row := range s.Rows {
			assert.Len(t, row, len(s.Header), s.Name)
		}
	}
	assert.Equal(t, []string{"1_normalized", "2_demand", "3_classified", "4_allocation"}, names)
	assert.Len(t, stages[0].Rows, 9)
	assert.Len(t, stages[1].Rows, 6)
}

func TestFormatIDFloat(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1234.5, 2, "1.234,50"},
		{1000, 2, "1.000"},
		{-0.004, 2, "0"},
		{-1234567.891, 1, "-1.234.567,9"},
		{12, 0, "12"},
		{0.125, 2, "0,12"},
		{2.5, 0, "2"},
		{999, 2, "999"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatIDFloat(tt.v, tt.decimals))
	}
}
