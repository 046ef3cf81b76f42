package replenishment

import "math"

// DefaultMinStockFactor is the share of weighted demand kept as minimum stock.
const DefaultMinStockFactor = 0.7

// DefaultMaxMultipliers sizes max stock per class. Classes not listed get 0.
func DefaultMaxMultipliers() map[string]float64 {
	return map[string]float64{
		"A": 2,
		"B": 1,
		"C": 0.5,
		"D": 0,
	}
}

// Calculator derives stock parameters from weighted demand and class.
type Calculator struct {
	minFactor      float64
	maxMultipliers map[string]float64
	dispersion     DispersionParams
}

// NewCalculator creates a calculator. A nil multipliers map uses
// DefaultMaxMultipliers.
func NewCalculator(minFactor float64, maxMultipliers map[string]float64, dispersion DispersionParams) *Calculator {
	if maxMultipliers == nil {
		maxMultipliers = DefaultMaxMultipliers()
	}
	return &Calculator{
		minFactor:      minFactor,
		maxMultipliers: maxMultipliers,
		dispersion:     dispersion,
	}
}

// Calculate computes the replenishment parameters for one classified row.
// Results stay unrounded; rounding happens once in POAllocationRecord.Rounded.
func (c *Calculator) Calculate(rec ClassificationRecord) ReplenishmentRecord {
	out := ReplenishmentRecord{ClassificationRecord: rec}

	// Net returns can push demand below zero; nothing to stock for those.
	demand := math.Max(0, rec.WMA)

	// 1. Min stock = weighted demand × min factor
	out.MinStock = demand * c.minFactor

	// 2. Max stock = weighted demand × class multiplier
	out.MaxStock = demand * c.maxMultipliers[rec.Class]

	// 3. Safety stock from the trimmed per-period series
	ds := SafetyStock(rec.Quantities, rec.Class, c.dispersion)
	out.SafetyStock = ds.SafetyStock
	out.Volatility = ds.Volatility

	// 4. Reorder point = min stock + safety stock
	out.ROP = out.MinStock + out.SafetyStock

	return out
}
