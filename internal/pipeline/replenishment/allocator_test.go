package replenishment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddStock(t *testing.T) {
	assert.Equal(t, AddStock{Qty: 10, Needed: true}, NewAddStock(15, 5))
	assert.Equal(t, AddStock{}, NewAddStock(15, 15))
	assert.Equal(t, AddStock{}, NewAddStock(15, 40))

	b, err := json.Marshal(NewAddStock(15, 40))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(NewAddStock(15, 5))
	require.NoError(t, err)
	assert.Equal(t, "10", string(b))

	var back struct {
		A AddStock `json:"a"`
		B AddStock `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":2.5}`), &back))
	assert.Equal(t, AddStock{}, back.A)
	assert.Equal(t, AddStock{Qty: 2.5, Needed: true}, back.B)
}

func TestAllocator_Allocate(t *testing.T) {
	alloc := NewAllocator()

	tests := []struct {
		name string
		in   AllocationInput
		want float64
	}{
		{
			name: "hub cannot cover the shortfall",
			in: AllocationInput{
				Stock: 0, HubStock: 5, NetworkStock: 50, NetworkDemand: 80, SO: 30,
				Add: NewAddStock(10, 0),
			},
			want: 0,
		},
		{
			name: "ideal allocation rounds half to even",
			in: AllocationInput{
				Stock: 5, HubStock: 25, NetworkStock: 50, NetworkDemand: 80, SO: 10,
				Add: NewAddStock(15, 5),
			},
			want: 2, // 15/50*25 - 5 = 2.5
		},
		{
			name: "ideal allocation rounds odd half up",
			in: AllocationInput{
				Stock: 5, HubStock: 34, NetworkStock: 60, NetworkDemand: 80, SO: 10,
				Add: NewAddStock(15, 5),
			},
			want: 4, // 15/60*34 - 5 = 3.5
		},
		{
			name: "ideal allocation floors at zero",
			in: AllocationInput{
				Stock: 5, HubStock: 12, NetworkStock: 100, NetworkDemand: 120, SO: 30,
				Add: NewAddStock(15, 5),
			},
			want: 0, // 15/100*12 - 5 < 0
		},
		{
			name: "network covered, own shortfall",
			in: AllocationInput{
				Stock: 5, HubStock: 25, NetworkStock: 100, NetworkDemand: 80, SO: 10,
				Add: NewAddStock(15, 5),
			},
			want: 10,
		},
		{
			name: "stock above projection, own shortfall",
			in: AllocationInput{
				Stock: 10, HubStock: 25, NetworkStock: 50, NetworkDemand: 80, SO: 10,
				Add: NewAddStock(20, 10),
			},
			want: 10,
		},
		{
			name: "nothing to add",
			in: AllocationInput{
				Stock: 30, HubStock: 25, NetworkStock: 50, NetworkDemand: 80, SO: 10,
				Add: NewAddStock(20, 30),
			},
			want: 0,
		},
		{
			name: "zero network stock is suppressed",
			in: AllocationInput{
				Stock: 0, HubStock: 20, NetworkStock: 0, NetworkDemand: 10, SO: 30,
				Add: NewAddStock(5, 0),
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, alloc.Allocate(tt.in))
		})
	}
}

func TestAllocator_ZeroPeriodDays(t *testing.T) {
	alloc := &Allocator{ProjectionDays: 20}

	got := alloc.Allocate(AllocationInput{
		Stock: 5, HubStock: 25, NetworkStock: 50, NetworkDemand: 80, SO: 10,
		Add: NewAddStock(15, 5),
	})
	assert.Zero(t, got)
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		name  string
		class string
		stock float64
		rop   float64
		max   float64
		want  string
	}{
		{"class D with stock", "D", 3, 0, 0, StatusOverstockD},
		{"class D nearly empty", "D", 2, 0, 0, StatusBalance},
		{"above max", "A", 250, 70, 200, StatusOverstock},
		{"between rop and max", "A", 100, 70, 200, StatusBalance},
		{"at rop", "B", 70, 70, 100, StatusBalance},
		{"below rop", "A", 50, 70, 200, StatusUnderstock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StockStatus(tt.class, tt.stock, tt.rop, tt.max))
		})
	}
}

func TestRestockFlag(t *testing.T) {
	assert.Equal(t, RestockNeeded, RestockFlag(50, 80))
	assert.Equal(t, RestockNotNeeded, RestockFlag(80, 80))
	assert.Equal(t, RestockNotNeeded, RestockFlag(100, 80))
}
