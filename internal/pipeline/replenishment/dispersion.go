package replenishment

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const volatilityEpsilon = 1e-6

// DispersionParams tunes the safety stock estimate.
type DispersionParams struct {
	LeadTimeFraction float64            // lead time as a fraction of one period
	OutlierThreshold float64            // multiple of the mean beyond which a value is dropped
	ZScores          map[string]float64 // base z per ABC class; missing classes get 0
	HighVolatility   float64
	LowVolatility    float64
	ZAdjustment      float64
}

// DefaultDispersionParams returns the service-level table used by default.
func DefaultDispersionParams() DispersionParams {
	return DispersionParams{
		LeadTimeFraction: 0.7,
		OutlierThreshold: 2,
		ZScores: map[string]float64{
			"A": 1.65,
			"B": 1.0,
			"C": 0.0,
			"D": 0.0,
		},
		HighVolatility: 1.5,
		LowVolatility:  0.5,
		ZAdjustment:    0.2,
	}
}

// DispersionResult carries the safety stock and the figures behind it.
type DispersionResult struct {
	SafetyStock float64
	Mean        float64
	Std         float64
	Volatility  float64
	Z           float64
	Points      int
}

// TrimOutliers drops every value farther from the series mean than
// threshold x mean. The test is relative to the mean, not the deviation, so
// it keeps only exact zeros when the mean is 0.
func TrimOutliers(series []float64, threshold float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	mean := stat.Mean(series, nil)
	limit := threshold * mean

	kept := make([]float64, 0, len(series))
	for _, v := range series {
		if math.Abs(v-mean) <= limit {
			kept = append(kept, v)
		}
	}
	return kept
}

// SafetyStock estimates the buffer for one demand series given its ABC class.
// Fewer than two points after trimming yields 0. The result is rounded to two
// decimals and never negative.
func SafetyStock(series []float64, class string, p DispersionParams) DispersionResult {
	kept := TrimOutliers(series, p.OutlierThreshold)
	res := DispersionResult{Points: len(kept)}
	if len(kept) < 2 {
		return res
	}

	res.Mean, res.Std = stat.PopMeanStdDev(kept, nil)
	res.Volatility = res.Std / (res.Mean + volatilityEpsilon)

	z := p.ZScores[class]
	switch {
	case res.Volatility > p.HighVolatility:
		z += p.ZAdjustment
	case res.Volatility < p.LowVolatility:
		z -= p.ZAdjustment
	}
	res.Z = z

	safety := z * res.Std * math.Sqrt(p.LeadTimeFraction)
	res.SafetyStock = math.Max(0, roundFloat(safety, 2))
	return res
}
