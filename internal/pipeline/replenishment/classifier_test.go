package replenishment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demandRow(location, item, category string, wma float64) DemandAggregate {
	return DemandAggregate{Location: location, ItemCode: item, Category: category, WMA: wma}
}

func classesByItem(recs []ClassificationRecord) map[string]string {
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.ItemCode] = r.Class
	}
	return out
}

func TestCumulativeClassifier(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Jakarta", "E", "Bags", 5),
		demandRow("Jakarta", "Z", "Bags", 0),
		demandRow("Jakarta", "A", "Bags", 50),
		demandRow("Jakarta", "C", "Bags", 15),
		demandRow("Jakarta", "B", "Bags", 20),
		demandRow("Jakarta", "D", "Bags", 10),
	}

	got := CumulativePolicy.Classify(rows, MetricWMA)
	require.Len(t, got, len(rows))

	order := make([]string, len(got))
	for i, r := range got {
		order[i] = r.ItemCode
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "Z"}, order)

	assert.Equal(t, map[string]string{
		"A": "A", // 50%
		"B": "A", // 70%
		"C": "B", // 85%
		"D": "C", // 95%
		"E": "C", // 100%
		"Z": "D",
	}, classesByItem(got))

	assert.InDelta(t, 50.0, got[0].ContributionPct, 1e-9)
	assert.InDelta(t, 70.0, got[1].CumulativePct, 1e-9)
	assert.InDelta(t, 0.0, got[5].ContributionPct, 1e-9)
	assert.InDelta(t, 0.0, got[5].CumulativePct, 1e-9)
}

func TestCumulativeClassifier_AllZeroDemand(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Medan", "X", "Bags", 0),
		demandRow("Medan", "Y", "Shoes", 0),
	}

	for _, r := range CumulativePolicy.Classify(rows, MetricWMA) {
		assert.Equal(t, "D", r.Class)
		assert.Zero(t, r.ContributionPct)
		assert.Zero(t, r.CumulativePct)
	}
}

func TestCumulativeClassifier_StableTies(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Bandung", "second", "Bags", 30),
		demandRow("Bandung", "first", "Bags", 30),
		demandRow("Bandung", "third", "Bags", 40),
	}

	got := CumulativePolicy.Classify(rows, MetricWMA)
	assert.Equal(t, "third", got[0].ItemCode)
	assert.Equal(t, "second", got[1].ItemCode)
	assert.Equal(t, "first", got[2].ItemCode)
}

func TestCumulativeClassifier_MonotonicInRank(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Surabaya", "a", "Bags", 3),
		demandRow("Surabaya", "b", "Bags", 41),
		demandRow("Surabaya", "c", "Bags", 7.5),
		demandRow("Surabaya", "d", "Bags", 0),
		demandRow("Surabaya", "e", "Bags", 19),
		demandRow("Surabaya", "f", "Bags", 11),
		demandRow("Surabaya", "g", "Bags", 1),
		demandRow("Surabaya", "h", "Bags", 22),
	}

	got := CumulativePolicy.Classify(rows, MetricWMA)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Metric, got[i].Metric)
		assert.LessOrEqual(t, got[i-1].Class, got[i].Class, "item %s ranked after %s", got[i].ItemCode, got[i-1].ItemCode)
	}
}

func TestMaxRatioClassifier(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Jakarta", "b1", "Bags", 100),
		demandRow("Jakarta", "b2", "Bags", 76),
		demandRow("Jakarta", "b3", "Bags", 60),
		demandRow("Jakarta", "b4", "Bags", 30),
		demandRow("Jakarta", "b5", "Bags", 25),
		demandRow("Jakarta", "b6", "Bags", 0),
		demandRow("Jakarta", "s1", "Shoes", 4),
		demandRow("Jakarta", "s2", "Shoes", 1),
		demandRow("Jakarta", "u1", "Umbrellas", 0),
	}

	got := MaxRatioPolicy.Classify(rows, MetricWMA)
	assert.Equal(t, map[string]string{
		"b1": "A",
		"b2": "A",
		"b3": "B",
		"b4": "C",
		"b5": "D",
		"b6": "E",
		"s1": "A",
		"s2": "D",
		"u1": "E",
	}, classesByItem(got))

	for _, r := range got {
		if r.ItemCode == "b3" {
			assert.InDelta(t, 0.6, r.Ratio, 1e-9)
		}
	}
}

func TestLogBenchmarkClassifier(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Padang", "p1", "Bags", 10000),
		demandRow("Padang", "p2", "Bags", 100),
		demandRow("Padang", "p3", "Bags", 10),
		demandRow("Padang", "p4", "Bags", 1),
		demandRow("Padang", "p5", "Bags", 0.4),
		demandRow("Padang", "p6", "Bags", 0),
		demandRow("Padang", "p7", "Bags", -3),
		demandRow("Padang", "q1", "Shoes", 0.3),
	}

	got := LogBenchmarkPolicy.Classify(rows, MetricWMA)
	assert.Equal(t, map[string]string{
		"p1": "A", // 4 / 1.75
		"p2": "C", // 2 / 1.75
		"p3": "D", // 1 / 1.75
		"p4": "E",
		"p5": "E",
		"p6": "F",
		"p7": "F",
		"q1": "E", // no item of the category reaches 1
	}, classesByItem(got))
}

func TestClassifier_Metrics(t *testing.T) {
	d := DemandAggregate{Quantities: []float64{1, 2, 6}, Mean: 3, WMA: 4.1}

	assert.Equal(t, 4.1, MetricWMA.Value(d))
	assert.Equal(t, 3.0, MetricMean.Value(d))
	assert.Equal(t, 9.0, MetricTotal.Value(d))

	m, err := ParseMetric(" Total ")
	require.NoError(t, err)
	assert.Equal(t, MetricTotal, m)

	_, err = ParseMetric("median")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClassifier(t *testing.T) {
	for _, p := range []Policy{PolicyCumulative, PolicyMaxRatio, PolicyLogBenchmark} {
		c, err := NewClassifier(p)
		require.NoError(t, err)
		assert.Equal(t, p, c.Policy())
	}

	_, err := NewClassifier("pareto")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClassifyAll_ScopesPerLocation(t *testing.T) {
	rows := []DemandAggregate{
		demandRow("Surabaya", "X", "Bags", 1),
		demandRow("Jakarta", "X", "Bags", 90),
		demandRow("Surabaya", "Y", "Bags", 9),
		demandRow("Jakarta", "Y", "Bags", 10),
	}

	got, err := ClassifyAll(context.Background(), CumulativePolicy, rows, MetricWMA)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "Jakarta", got[0].Location)
	assert.Equal(t, "Jakarta", got[1].Location)
	assert.Equal(t, "Surabaya", got[2].Location)
	assert.Equal(t, "Surabaya", got[3].Location)

	// Each location is ranked against itself only.
	assert.Equal(t, "X", got[0].ItemCode)
	assert.InDelta(t, 90.0, got[0].ContributionPct, 1e-9)
	assert.Equal(t, "Y", got[2].ItemCode)
	assert.InDelta(t, 90.0, got[2].ContributionPct, 1e-9)
}

func TestClassifyAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ClassifyAll(ctx, CumulativePolicy, []DemandAggregate{demandRow("Jakarta", "X", "Bags", 1)}, MetricWMA)
	assert.ErrorIs(t, err, context.Canceled)
}
