package replenishment

import (
	"fmt"
	"math"
	"time"
)

// Config parameterizes an analysis run.
type Config struct {
	Mapping     Mapping
	HubLocation string

	Period        PeriodPolicy
	ReferenceDate time.Time // PeriodBlock30 only; zero means the latest sale
	Weights       []float64 // newest period first

	Metric Metric
	Policy Policy

	Dispersion     DispersionParams
	MinStockFactor float64
	MaxMultipliers map[string]float64

	StockColumnPrefix string
	SplitByChannel    bool

	// Locations restricts and orders the analysed locations. Empty means
	// every location present in the normalized sales.
	Locations []string
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	weights := make([]float64, len(DefaultWeights))
	copy(weights, DefaultWeights)
	return Config{
		Mapping:           DefaultMapping(),
		HubLocation:       "Jakarta",
		Period:            PeriodMonth,
		Weights:           weights,
		Metric:            MetricWMA,
		Policy:            PolicyCumulative,
		Dispersion:        DefaultDispersionParams(),
		MinStockFactor:    DefaultMinStockFactor,
		MaxMultipliers:    DefaultMaxMultipliers(),
		StockColumnPrefix: "Stock ",
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: weight schedule is empty", ErrInvalidConfig)
	}
	for i, w := range c.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrInvalidConfig, i, w)
		}
	}
	if c.Period != PeriodMonth && c.Period != PeriodBlock30 {
		return fmt.Errorf("%w: unknown period policy %q", ErrInvalidConfig, c.Period)
	}
	if _, err := ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	if _, err := NewClassifier(c.Policy); err != nil {
		return err
	}
	if c.Dispersion.LeadTimeFraction < 0 {
		return fmt.Errorf("%w: lead time fraction must not be negative", ErrInvalidConfig)
	}
	if c.Dispersion.OutlierThreshold <= 0 {
		return fmt.Errorf("%w: outlier threshold must be positive", ErrInvalidConfig)
	}
	if c.MinStockFactor < 0 {
		return fmt.Errorf("%w: min stock factor must not be negative", ErrInvalidConfig)
	}
	if c.HubLocation == "" && !c.SplitByChannel {
		return fmt.Errorf("%w: hub location is required", ErrInvalidConfig)
	}
	return nil
}
