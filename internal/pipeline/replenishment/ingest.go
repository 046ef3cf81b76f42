package replenishment

import (
	"sort"
	"strings"

	"github.com/andresuchdata/replenish/internal/tabular"
)

var (
	itemCodeAliases   = []string{"item code", "item_code", "kode barang", "kode item", "sku", "item"}
	departmentAliases = []string{"department", "dept", "departemen", "dept code", "location", "lokasi", "city", "kota", "cabang"}
	customerAliases   = []string{"customer", "customer id", "customer name", "pelanggan", "nama pelanggan", "channel"}
	dateAliases       = []string{"date", "tanggal", "transaction date", "tgl", "tgl transaksi"}
	quantityAliases   = []string{"quantity", "qty", "jumlah", "kuantitas"}
	itemNameAliases   = []string{"item name", "nama barang", "nama item", "nama", "name", "product name"}
	categoryAliases   = []string{"category", "kategori", "item category", "kategori barang"}
	brandAliases      = []string{"brand", "merk", "merek"}
)

func requireColumn(t tabular.Table, column string, aliases []string) (int, error) {
	idx := t.Index(aliases...)
	if idx < 0 {
		return -1, &MissingColumnError{Table: t.Name, Column: column, Aliases: aliases}
	}
	return idx, nil
}

// SalesFromTable reads raw sales lines. Item code, department/location, date
// and quantity columns are required; the customer column is optional.
func SalesFromTable(t tabular.Table) ([]RawSale, error) {
	idxItem, err := requireColumn(t, "item code", itemCodeAliases)
	if err != nil {
		return nil, err
	}
	idxDept, err := requireColumn(t, "department", departmentAliases)
	if err != nil {
		return nil, err
	}
	idxDate, err := requireColumn(t, "date", dateAliases)
	if err != nil {
		return nil, err
	}
	idxQty, err := requireColumn(t, "quantity", quantityAliases)
	if err != nil {
		return nil, err
	}
	idxCustomer := t.Index(customerAliases...)

	rows := make([]RawSale, 0, len(t.Rows))
	for _, record := range t.Rows {
		rows = append(rows, RawSale{
			ItemCode:   tabular.Value(record, idxItem),
			Department: tabular.Value(record, idxDept),
			Customer:   tabular.Value(record, idxCustomer),
			Date:       tabular.Value(record, idxDate),
			Quantity:   tabular.Value(record, idxQty),
		})
	}
	return rows, nil
}

// CatalogFromTable reads the item catalog. Duplicate item codes collapse to
// the first occurrence.
func CatalogFromTable(t tabular.Table) ([]CatalogEntry, error) {
	idxItem, err := requireColumn(t, "item code", itemCodeAliases)
	if err != nil {
		return nil, err
	}
	idxName := t.Index(itemNameAliases...)
	idxCategory := t.Index(categoryAliases...)
	idxBrand := t.Index(brandAliases...)

	seen := make(map[string]struct{}, len(t.Rows))
	entries := make([]CatalogEntry, 0, len(t.Rows))
	for _, record := range t.Rows {
		code := tabular.Value(record, idxItem)
		if code == "" || isPlaceholder(code) {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}

		category := tabular.Value(record, idxCategory)
		if category == "" {
			category = OthersCategory
		}
		entries = append(entries, CatalogEntry{
			ItemCode: code,
			Name:     tabular.Value(record, idxName),
			Category: category,
			Brand:    tabular.Value(record, idxBrand),
		})
	}
	return entries, nil
}

// StockFromWideTable melts a stock table with one "<prefix><location>" column
// per location into long form. Location names go through the normalizer so
// department codes and city names are both accepted; columns that resolve to
// OthersLocation are ignored. Repeated item rows are summed.
func StockFromWideTable(t tabular.Table, prefix string, n *Normalizer) ([]StockSnapshot, error) {
	idxItem, err := requireColumn(t, "item code", itemCodeAliases)
	if err != nil {
		return nil, err
	}

	type stockColumn struct {
		idx      int
		location string
	}
	lowerPrefix := strings.ToLower(prefix)
	var columns []stockColumn
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(strings.ToLower(h), lowerPrefix) || len(h) <= len(prefix) {
			continue
		}
		location := n.Location(h[len(prefix):], "")
		if location == OthersLocation {
			continue
		}
		columns = append(columns, stockColumn{idx: i, location: location})
	}
	if len(columns) == 0 {
		return nil, &MissingColumnError{Table: t.Name, Column: prefix + "<location>"}
	}

	totals := make(map[stockKey]float64)
	var order []stockKey
	for _, record := range t.Rows {
		code := tabular.Value(record, idxItem)
		if code == "" || isPlaceholder(code) {
			continue
		}
		for _, col := range columns {
			qty, _ := ParseQuantity(tabular.Value(record, col.idx))
			k := stockKey{location: col.location, item: code}
			if _, ok := totals[k]; !ok {
				order = append(order, k)
			}
			totals[k] += qty
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].location != order[j].location {
			return order[i].location < order[j].location
		}
		return order[i].item < order[j].item
	})

	out := make([]StockSnapshot, 0, len(order))
	for _, k := range order {
		out = append(out, StockSnapshot{Location: k.location, ItemCode: k.item, Quantity: totals[k]})
	}
	return out, nil
}
