package replenishment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/tabular"
)

func TestSalesFromTable(t *testing.T) {
	table := tabular.Table{
		Name:   "sales.csv",
		Header: []string{"Tanggal", "Kode Barang", "Dept", "Qty", "Customer"},
		Rows: [][]string{
			{"2024-03-05", "X", "JKT", "3", "SHOPEE"},
			{"2024-03-06", " Y ", "SBY", "1"},
		},
	}

	got, err := SalesFromTable(table)
	require.NoError(t, err)
	assert.Equal(t, []RawSale{
		{ItemCode: "X", Department: "JKT", Customer: "SHOPEE", Date: "2024-03-05", Quantity: "3"},
		{ItemCode: "Y", Department: "SBY", Date: "2024-03-06", Quantity: "1"},
	}, got)
}

func TestSalesFromTable_MissingColumn(t *testing.T) {
	table := tabular.Table{
		Name:   "sales.csv",
		Header: []string{"Item Code", "Department", "Date"},
	}

	_, err := SalesFromTable(table)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)

	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "sales.csv", mce.Table)
	assert.Equal(t, "quantity", mce.Column)
}

func TestCatalogFromTable(t *testing.T) {
	table := tabular.Table{
		Name:   "catalog.xlsx",
		Header: []string{"item_code", "Item Name", "Category", "Brand"},
		Rows: [][]string{
			{"X", "Tote", "Bags", "Acme"},
			{"Y", "Boot", "", "Acme"},
			{"X", "Tote v2", "Luggage", "Acme"},
			{"-", "placeholder", "", ""},
		},
	}

	got, err := CatalogFromTable(table)
	require.NoError(t, err)
	assert.Equal(t, []CatalogEntry{
		{ItemCode: "X", Name: "Tote", Category: "Bags", Brand: "Acme"},
		{ItemCode: "Y", Name: "Boot", Category: OthersCategory, Brand: "Acme"},
	}, got)
}

func TestStockFromWideTable(t *testing.T) {
	n := NewNormalizer(DefaultMapping())
	table := tabular.Table{
		Name:   "stock.csv",
		Header: []string{"Item Code", "Stock Jakarta", "stock SBY", "Stock Atlantis", "Price"},
		Rows: [][]string{
			{"X", "10", "4", "99", "1000"},
			{"Y", "", "2", "1", "500"},
			{"X", "5", "1", "0", "1000"},
		},
	}

	got, err := StockFromWideTable(table, "Stock ", n)
	require.NoError(t, err)
	assert.Equal(t, []StockSnapshot{
		{Location: "Jakarta", ItemCode: "X", Quantity: 15},
		{Location: "Jakarta", ItemCode: "Y", Quantity: 0},
		{Location: "Surabaya", ItemCode: "X", Quantity: 5},
		{Location: "Surabaya", ItemCode: "Y", Quantity: 2},
	}, got)
}

func TestStockFromWideTable_NoStockColumns(t *testing.T) {
	n := NewNormalizer(DefaultMapping())
	table := tabular.Table{Name: "stock.csv", Header: []string{"Item Code", "Price"}}

	_, err := StockFromWideTable(table, "Stock ", n)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
