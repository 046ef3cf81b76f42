package replenishment

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	StatusOverstockD = "Overstock-D"
	StatusOverstock  = "Overstock"
	StatusBalance    = "Balance"
	StatusUnderstock = "Understock"

	RestockNeeded    = "needs PO"
	RestockNotNeeded = "no"
)

// AllocationInput is everything the allocator looks at for one
// (location, item).
type AllocationInput struct {
	Location      string
	ItemCode      string
	Stock         float64 // on hand at this location
	HubStock      float64
	NetworkStock  float64 // sum over all locations
	NetworkDemand float64 // sum of weighted demand over all locations
	SO            float64 // weighted demand at this location
	Add           AddStock
}

// Allocator suggests how much to send to a location out of hub stock.
type Allocator struct {
	ProjectionDays float64
	PeriodDays     float64
}

// NewAllocator returns an allocator projecting 20 days of a 30-day period.
func NewAllocator() *Allocator {
	return &Allocator{ProjectionDays: 20, PeriodDays: 30}
}

// Allocate returns the suggested PO quantity. It never fails: arithmetic
// problems are logged and yield 0.
func (a *Allocator) Allocate(in AllocationInput) float64 {
	qty, err := a.allocate(in)
	if err != nil {
		log.Warn().
			Err(err).
			Str("location", in.Location).
			Str("item_code", in.ItemCode).
			Msg("PO allocation failed, suggesting 0")
		return 0
	}
	return qty
}

func (a *Allocator) allocate(in AllocationInput) (float64, error) {
	if !in.Add.Needed {
		return 0, nil
	}

	// 1. Hub cannot cover the shortfall
	if in.HubStock < in.Add.Qty {
		return 0, nil
	}

	// 2. Demand projected over the projection horizon
	if a.PeriodDays == 0 {
		return 0, fmt.Errorf("projection: %w", ErrDivisionByZero)
	}
	projection := in.SO / a.PeriodDays * a.ProjectionDays

	// 3. Network short and this location below projection: share hub stock
	// in proportion to the location's post-need stock
	if in.NetworkStock < in.NetworkDemand && in.Stock < projection {
		if in.NetworkStock == 0 {
			return 0, fmt.Errorf("ideal allocation: %w", ErrDivisionByZero)
		}
		ideal := (in.Stock+in.Add.Qty)/in.NetworkStock*in.HubStock - in.Stock
		if math.IsNaN(ideal) || math.IsInf(ideal, 0) {
			return 0, fmt.Errorf("ideal allocation is not finite: %v", ideal)
		}
		ideal = math.Max(0, ideal)
		return decimal.NewFromFloat(ideal).RoundBank(0).InexactFloat64(), nil
	}

	// 4. Own shortfall
	return in.Add.Qty, nil
}

// StockStatus labels stock against ROP and max stock for reporting.
func StockStatus(class string, stock, rop, maxStock float64) string {
	switch {
	case class == "D" && stock > 2:
		return StatusOverstockD
	case class == "D":
		return StatusBalance
	case stock > maxStock:
		return StatusOverstock
	case stock >= rop && stock <= maxStock:
		return StatusBalance
	case stock < rop:
		return StatusUnderstock
	}
	return ""
}

// RestockFlag reports whether the network as a whole needs a purchase order.
func RestockFlag(networkStock, networkDemand float64) string {
	if networkStock < networkDemand {
		return RestockNeeded
	}
	return RestockNotNeeded
}
