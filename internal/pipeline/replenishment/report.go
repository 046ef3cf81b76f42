package replenishment

import (
	"fmt"

	"github.com/andresuchdata/replenish/internal/tabular"
)

// AllSheet is the name of the combined sheet.
const AllSheet = "All"

// notApplicable is printed for an add_stock that is not needed.
const notApplicable = "-"

// Report is the result of one analysis run. Rows are sorted by location,
// channel, class, metric descending, then item code.
type Report struct {
	Window         Window               `json:"window"`
	Policy         Policy               `json:"policy"`
	Metric         Metric               `json:"metric"`
	HubLocation    string               `json:"hub_location"`
	SplitByChannel bool                 `json:"split_by_channel"`
	Stats          NormalizeStats       `json:"stats"`
	Normalized     []SalesRecord        `json:"-"`
	Demand         []DemandAggregate    `json:"-"`
	Rows           []POAllocationRecord `json:"rows"`
}

// Partition is the slice of a report belonging to one location.
type Partition struct {
	Location string
	Rows     []POAllocationRecord
}

// Columns is the fixed output column order.
func (r *Report) Columns() []string {
	cols := []string{"location"}
	if r.SplitByChannel {
		cols = append(cols, "channel")
	}
	cols = append(cols, "item_code", "item_name", "category", "brand")
	for _, key := range r.Window.Keys() {
		cols = append(cols, "qty_"+key)
	}
	cols = append(cols,
		"mean", "std", "wma",
		"metric", "contribution_pct", "cumulative_pct", "ratio", "abc_class",
		"min_stock", "safety_stock", "rop", "max_stock", "volatility",
	)
	if !r.SplitByChannel {
		cols = append(cols,
			"stock", "hub_stock", "network_stock", "network_demand",
			"add_stock", "suggested_po", "restock", "status",
		)
	}
	return cols
}

// Values renders one row in Columns order. Stock parameters are rounded to
// integers together; diagnostics keep two decimals.
func (r *Report) Values(row POAllocationRecord) []interface{} {
	rounded := row.Rounded()
	vals := []interface{}{row.Location}
	if r.SplitByChannel {
		vals = append(vals, row.Channel)
	}
	vals = append(vals, row.ItemCode, row.ItemName, row.Category, row.Brand)
	for i := range r.Window.Periods {
		var q float64
		if i < len(row.Quantities) {
			q = row.Quantities[i]
		}
		vals = append(vals, roundFloat(q, 2))
	}
	vals = append(vals,
		roundFloat(row.Mean, 2), roundFloat(row.Std, 2), roundFloat(row.WMA, 2),
		roundFloat(row.Metric, 2), roundFloat(row.ContributionPct, 2), roundFloat(row.CumulativePct, 2),
		roundFloat(row.Ratio, 2), row.Class,
		rounded.MinStock, rounded.SafetyStock, rounded.ROP, rounded.MaxStock, roundFloat(row.Volatility, 2),
	)
	if !r.SplitByChannel {
		var add interface{} = notApplicable
		if row.AddStock.Needed {
			add = roundFloat(row.AddStock.Qty, 2)
		}
		vals = append(vals,
			roundFloat(row.Stock, 2), roundFloat(row.HubStock, 2),
			roundFloat(row.NetworkStock, 2), roundFloat(row.NetworkDemand, 2),
			add, rounded.SuggestedPO, row.Restock, row.Status,
		)
	}
	return vals
}

// Locations lists the report's locations in row order.
func (r *Report) Locations() []string {
	var out []string
	for i, row := range r.Rows {
		if i == 0 || row.Location != r.Rows[i-1].Location {
			out = append(out, row.Location)
		}
	}
	return out
}

// Partition splits rows by location without recomputing anything.
func (r *Report) Partition() []Partition {
	var parts []Partition
	for _, row := range r.Rows {
		if n := len(parts); n == 0 || parts[n-1].Location != row.Location {
			parts = append(parts, Partition{Location: row.Location})
		}
		parts[len(parts)-1].Rows = append(parts[len(parts)-1].Rows, row)
	}
	return parts
}

// Sheet renders rows under the report columns.
func (r *Report) Sheet(name string, rows []POAllocationRecord) tabular.Sheet {
	s := tabular.Sheet{Name: name, Header: r.Columns(), Rows: make([][]interface{}, 0, len(rows))}
	for _, row := range rows {
		s.Rows = append(s.Rows, r.Values(row))
	}
	return s
}

// Sheets returns one sheet per location followed by the combined sheet.
func (r *Report) Sheets() []tabular.Sheet {
	parts := r.Partition()
	sheets := make([]tabular.Sheet, 0, len(parts)+1)
	for _, p := range parts {
		sheets = append(sheets, r.Sheet(p.Location, p.Rows))
	}
	return append(sheets, r.Sheet(AllSheet, r.Rows))
}

// StageSheets renders the intermediate tables of the run for debugging.
// Numbers use the Indonesian format of the source spreadsheets.
func (r *Report) StageSheets() []tabular.Sheet {
	normalized := tabular.Sheet{
		Name:   "1_normalized",
		Header: []string{"item_code", "location", "channel", "date", "quantity"},
	}
	for _, s := range r.Normalized {
		normalized.Rows = append(normalized.Rows, []interface{}{
			s.ItemCode, s.Location, s.Channel, s.Date.Format("2006-01-02"), formatIDFloat(s.Quantity, 2),
		})
	}

	demand := tabular.Sheet{
		Name:   "2_demand",
		Header: append([]string{"location", "channel", "item_code", "category"}, r.Window.Keys()...),
	}
	demand.Header = append(demand.Header, "mean", "std", "wma")
	for _, d := range r.Demand {
		row := []interface{}{d.Location, d.Channel, d.ItemCode, d.Category}
		for _, q := range d.Quantities {
			row = append(row, formatIDFloat(q, 2))
		}
		row = append(row, formatIDFloat(d.Mean, 2), formatIDFloat(d.Std, 2), formatIDFloat(d.WMA, 2))
		demand.Rows = append(demand.Rows, row)
	}

	classified := tabular.Sheet{
		Name:   "3_classified",
		Header: []string{"location", "channel", "item_code", "metric", "contribution_pct", "cumulative_pct", "ratio", "abc_class"},
	}
	for _, c := range r.Rows {
		classified.Rows = append(classified.Rows, []interface{}{
			c.Location, c.Channel, c.ItemCode,
			formatIDFloat(c.Metric, 2), formatIDFloat(c.ContributionPct, 2),
			formatIDFloat(c.CumulativePct, 2), formatIDFloat(c.Ratio, 2), c.Class,
		})
	}

	allocation := r.Sheet("4_allocation", r.Rows)

	return []tabular.Sheet{normalized, demand, classified, allocation}
}

// Summary is a one-line description for logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d rows, %d locations, periods %v, policy %s", len(r.Rows), len(r.Locations()), r.Window.Keys(), r.Policy)
}
