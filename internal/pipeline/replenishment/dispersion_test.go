package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimOutliers(t *testing.T) {
	tests := []struct {
		name      string
		series    []float64
		threshold float64
		want      []float64
	}{
		{
			name:      "spike within twice the mean is kept",
			series:    []float64{10, 10, 1000},
			threshold: 2,
			want:      []float64{10, 10, 1000},
		},
		{
			name:      "spike beyond twice the mean is dropped",
			series:    []float64{10, 10, 10, 1000},
			threshold: 2,
			want:      []float64{10, 10, 10},
		},
		{
			name:      "all zeros survive a zero mean",
			series:    []float64{0, 0, 0},
			threshold: 2,
			want:      []float64{0, 0, 0},
		},
		{
			name:      "empty",
			series:    nil,
			threshold: 2,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimOutliers(tt.series, tt.threshold))
		})
	}
}

func TestSafetyStock(t *testing.T) {
	highThreshold := DefaultDispersionParams()
	highThreshold.OutlierThreshold = 10

	tests := []struct {
		name       string
		series     []float64
		class      string
		params     DispersionParams
		wantSafety float64
		wantZ      float64
		wantPoints int
	}{
		{
			name:       "class C has no buffer",
			series:     []float64{10, 10, 1000},
			class:      "C",
			params:     DefaultDispersionParams(),
			wantSafety: 0,
			wantZ:      0,
			wantPoints: 3,
		},
		{
			name:       "trimmed series with no spread",
			series:     []float64{10, 10, 10, 1000},
			class:      "A",
			params:     DefaultDispersionParams(),
			wantSafety: 0,
			wantZ:      1.45,
			wantPoints: 3,
		},
		{
			name:       "single point",
			series:     []float64{5},
			class:      "A",
			params:     DefaultDispersionParams(),
			wantSafety: 0,
			wantPoints: 1,
		},
		{
			name:       "low volatility lowers z",
			series:     []float64{10, 20, 30},
			class:      "A",
			params:     DefaultDispersionParams(),
			wantSafety: 9.91,
			wantZ:      1.45,
			wantPoints: 3,
		},
		{
			name:       "high volatility raises z",
			series:     []float64{0, 0, 0, 0, 10},
			class:      "B",
			params:     highThreshold,
			wantSafety: 4.02,
			wantZ:      1.2,
			wantPoints: 5,
		},
		{
			name:       "negative z floors at zero",
			series:     []float64{10, 12, 14},
			class:      "C",
			params:     DefaultDispersionParams(),
			wantSafety: 0,
			wantZ:      -0.2,
			wantPoints: 3,
		},
		{
			name:       "unknown class uses zero z",
			series:     []float64{10, 20, 30},
			class:      "X",
			params:     DefaultDispersionParams(),
			wantSafety: 0,
			wantZ:      -0.2,
			wantPoints: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafetyStock(tt.series, tt.class, tt.params)
			assert.InDelta(t, tt.wantSafety, got.SafetyStock, 1e-9)
			assert.InDelta(t, tt.wantZ, got.Z, 1e-9)
			assert.Equal(t, tt.wantPoints, got.Points)
			assert.GreaterOrEqual(t, got.SafetyStock, 0.0)
		})
	}
}
