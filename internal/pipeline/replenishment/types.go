package replenishment

import (
	"encoding/json"
	"time"
)

// OthersLocation is the sentinel for sales rows whose department does not map
// to any configured city. Those rows never reach the analysis.
const OthersLocation = "Others"

// OthersCategory fills the catalog category of items that were sold but are
// missing from the catalog.
const OthersCategory = "Others"

// RawSale is one sales line as exported by the POS/ERP, before mapping.
type RawSale struct {
	ItemCode   string
	Department string // department or location code
	Customer   string // customer / channel identifier
	Date       string
	Quantity   string
}

// SalesRecord is a normalized sales line ready for grouping.
type SalesRecord struct {
	ItemCode string    `json:"item_code"`
	Location string    `json:"location"`
	Channel  string    `json:"channel"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// CatalogEntry is the reference row for an item code.
type CatalogEntry struct {
	ItemCode string `json:"item_code"`
	Name     string `json:"item_name"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

// StockSnapshot is the on-hand quantity of an item at a location.
type StockSnapshot struct {
	Location string
	ItemCode string
	Quantity float64
}

// DemandAggregate holds the per-period demand of one (location, item), or
// (location, channel, item) when sales are split by channel.
type DemandAggregate struct {
	Location   string    `json:"location"`
	Channel    string    `json:"channel,omitempty"`
	ItemCode   string    `json:"item_code"`
	ItemName   string    `json:"item_name"`
	Category   string    `json:"category"`
	Brand      string    `json:"brand"`
	Quantities []float64 `json:"quantities"` // one per analysed period, oldest first
	Mean       float64   `json:"mean"`
	Std        float64   `json:"std"`
	WMA        float64   `json:"wma"`
}

// Total is the raw demand summed over the analysed periods.
func (d DemandAggregate) Total() float64 {
	var total float64
	for _, q := range d.Quantities {
		total += q
	}
	return total
}

// ClassificationRecord is a DemandAggregate with its ABC tier and the
// diagnostics of the policy that produced it.
type ClassificationRecord struct {
	DemandAggregate
	Metric          float64 `json:"metric"`
	ContributionPct float64 `json:"contribution_pct"`
	CumulativePct   float64 `json:"cumulative_pct"`
	Ratio           float64 `json:"ratio"`
	Class           string  `json:"abc_class"`
}

// ReplenishmentRecord adds the stock parameters derived from demand and class.
// Values are kept unrounded; see Rounded.
type ReplenishmentRecord struct {
	ClassificationRecord
	MinStock    float64 `json:"min_stock"`
	SafetyStock float64 `json:"safety_stock"`
	ROP         float64 `json:"rop"`
	MaxStock    float64 `json:"max_stock"`
	Volatility  float64 `json:"volatility"`
}

// AddStock is the shortfall of a location against its reorder point. Needed is
// false when stock already covers the ROP, which is different from needing 0.
type AddStock struct {
	Qty    float64
	Needed bool
}

// NewAddStock returns ROP - stock when positive, otherwise "not needed".
func NewAddStock(rop, stock float64) AddStock {
	if diff := rop - stock; diff > 0 {
		return AddStock{Qty: diff, Needed: true}
	}
	return AddStock{}
}

// MarshalJSON renders "not needed" as null.
func (a AddStock) MarshalJSON() ([]byte, error) {
	if !a.Needed {
		return []byte("null"), nil
	}
	return json.Marshal(a.Qty)
}

// UnmarshalJSON reads null as "not needed" and a number as a shortfall.
func (a *AddStock) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AddStock{}
		return nil
	}
	var qty float64
	if err := json.Unmarshal(data, &qty); err != nil {
		return err
	}
	*a = AddStock{Qty: qty, Needed: true}
	return nil
}

// POAllocationRecord is the final row of an analysis run.
type POAllocationRecord struct {
	ReplenishmentRecord
	Stock         float64  `json:"stock"`
	HubStock      float64  `json:"hub_stock"`
	NetworkStock  float64  `json:"network_stock"`
	NetworkDemand float64  `json:"network_demand"`
	AddStock      AddStock `json:"add_stock"`
	SuggestedPO   float64  `json:"suggested_po"`
	Restock       string   `json:"restock"`
	Status        string   `json:"status"`
}

// RoundedFields are the integer figures shown in reports.
type RoundedFields struct {
	MinStock    int64 `json:"min_stock"`
	SafetyStock int64 `json:"safety_stock"`
	ROP         int64 `json:"rop"`
	MaxStock    int64 `json:"max_stock"`
	SuggestedPO int64 `json:"suggested_po"`
}

// Rounded rounds the stock parameters together, once, half to even.
func (r POAllocationRecord) Rounded() RoundedFields {
	return RoundedFields{
		MinStock:    roundInt(r.MinStock),
		SafetyStock: roundInt(r.SafetyStock),
		ROP:         roundInt(r.ROP),
		MaxStock:    roundInt(r.MaxStock),
		SuggestedPO: roundInt(r.SuggestedPO),
	}
}

// NormalizeStats counts what happened to the raw sales rows.
type NormalizeStats struct {
	Input           int `json:"input"`
	Kept            int `json:"kept"`
	DroppedItem     int `json:"dropped_item"`
	DroppedLocation int `json:"dropped_location"`
	DroppedDate     int `json:"dropped_date"`
	ZeroedQuantity  int `json:"zeroed_quantity"`
}
