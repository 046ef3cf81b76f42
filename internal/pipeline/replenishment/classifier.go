package replenishment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Policy names a classification strategy.
type Policy string

const (
	PolicyCumulative   Policy = "cumulative"
	PolicyMaxRatio     Policy = "max_ratio"
	PolicyLogBenchmark Policy = "log_benchmark"
)

// Metric is the demand column items are ranked by.
type Metric string

const (
	MetricWMA   Metric = "wma"
	MetricMean  Metric = "mean"
	MetricTotal Metric = "total"
)

// Value reads the metric from d. Unknown metrics fall back to the WMA.
func (m Metric) Value(d DemandAggregate) float64 {
	switch m {
	case MetricMean:
		return d.Mean
	case MetricTotal:
		return d.Total()
	default:
		return d.WMA
	}
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricWMA, MetricMean, MetricTotal:
		return m, nil
	case "":
		return MetricWMA, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, s)
}

// Classifier assigns an ABC tier to every row of one scope (a location, or a
// location and channel). Rows come back ranked by metric, highest first.
type Classifier interface {
	Policy() Policy
	Classify(rows []DemandAggregate, metric Metric) []ClassificationRecord
}

// Tier is a class and the bound that admits it. Cumulative policies admit a
// row while its cumulative share is <= Bound; ratio policies admit it when the
// ratio is > Bound.
type Tier struct {
	Class string  `json:"class"`
	Bound float64 `json:"bound"`
}

// CumulativeClassifier tiers items by running share of the scope total.
type CumulativeClassifier struct {
	Tiers []Tier
	Rest  string // past the last tier
	Zero  string // metric <= 0
}

// MaxRatioClassifier tiers items by their fraction of the largest metric in
// their catalog category.
type MaxRatioClassifier struct {
	Tiers []Tier
	Rest  string
	Zero  string // metric <= 0 or a category max of 0
}

// LogBenchmarkClassifier tiers items by log10 of the rounded metric relative
// to the category average of that log.
type LogBenchmarkClassifier struct {
	Tiers       []Tier
	Rest        string
	NonPositive string
}

// The three policy tables.
var (
	CumulativePolicy = CumulativeClassifier{
		Tiers: []Tier{{Class: "A", Bound: 70}, {Class: "B", Bound: 90}},
		Rest:  "C",
		Zero:  "D",
	}

	MaxRatioPolicy = MaxRatioClassifier{
		Tiers: []Tier{{Class: "A", Bound: 0.75}, {Class: "B", Bound: 0.50}, {Class: "C", Bound: 0.25}},
		Rest:  "D",
		Zero:  "E",
	}

	LogBenchmarkPolicy = LogBenchmarkClassifier{
		Tiers: []Tier{
			{Class: "A", Bound: 2},
			{Class: "B", Bound: 1.5},
			{Class: "C", Bound: 1},
			{Class: "D", Bound: 0.5},
		},
		Rest:        "E",
		NonPositive: "F",
	}
)

// NewClassifier returns the default table for p.
func NewClassifier(p Policy) (Classifier, error) {
	switch p {
	case PolicyCumulative, "":
		return CumulativePolicy, nil
	case PolicyMaxRatio:
		return MaxRatioPolicy, nil
	case PolicyLogBenchmark:
		return LogBenchmarkPolicy, nil
	}
	return nil, fmt.Errorf("%w: unknown classification policy %q", ErrInvalidConfig, p)
}

func (CumulativeClassifier) Policy() Policy   { return PolicyCumulative }
func (MaxRatioClassifier) Policy() Policy     { return PolicyMaxRatio }
func (LogBenchmarkClassifier) Policy() Policy { return PolicyLogBenchmark }

// Classify ranks rows and assigns A while the cumulative share stays within
// the first tier, B within the second, and Rest after that. Items with no
// demand are ranked last and get Zero.
func (c CumulativeClassifier) Classify(rows []DemandAggregate, metric Metric) []ClassificationRecord {
	out := rank(rows, metric)
	for i := range out {
		if out[i].Metric <= 0 {
			out[i].Class = c.Zero
			continue
		}
		out[i].Class = c.Rest
		for _, t := range c.Tiers {
			if out[i].CumulativePct <= t.Bound {
				out[i].Class = t.Class
				break
			}
		}
	}
	return out
}

// Classify compares each item against the best seller of its category.
func (c MaxRatioClassifier) Classify(rows []DemandAggregate, metric Metric) []ClassificationRecord {
	out := rank(rows, metric)

	groupMax := make(map[string]float64)
	for _, r := range out {
		if r.Metric > groupMax[r.Category] {
			groupMax[r.Category] = r.Metric
		}
	}

	for i := range out {
		top := groupMax[out[i].Category]
		if out[i].Metric <= 0 || top <= 0 {
			out[i].Class = c.Zero
			continue
		}
		out[i].Ratio = out[i].Metric / top
		out[i].Class = aboveTier(c.Tiers, out[i].Ratio, c.Rest)
	}
	return out
}

// Classify compares the order of magnitude of each item's demand against the
// average order of magnitude of its category.
func (c LogBenchmarkClassifier) Classify(rows []DemandAggregate, metric Metric) []ClassificationRecord {
	out := rank(rows, metric)

	logs := make([]float64, len(out))
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, r := range out {
		rounded := math.RoundToEven(r.Metric)
		logs[i] = math.Log10(math.Max(1, rounded))
		if rounded >= 1 {
			sums[r.Category] += logs[i]
			counts[r.Category]++
		}
	}

	for i := range out {
		if out[i].Metric <= 0 {
			out[i].Class = c.NonPositive
			continue
		}
		var avg float64
		if n := counts[out[i].Category]; n > 0 {
			avg = sums[out[i].Category] / float64(n)
		}
		if avg > 0 {
			out[i].Ratio = logs[i] / avg
		}
		out[i].Class = aboveTier(c.Tiers, out[i].Ratio, c.Rest)
	}
	return out
}

func aboveTier(tiers []Tier, v float64, rest string) string {
	for _, t := range tiers {
		if v > t.Bound {
			return t.Class
		}
	}
	return rest
}

// rank sorts rows by metric, highest first (stable, so ties keep input order),
// and fills the contribution and cumulative shares of the scope total. Rows
// with no demand go last with 0%.
func rank(rows []DemandAggregate, metric Metric) []ClassificationRecord {
	out := make([]ClassificationRecord, len(rows))
	var total float64
	for i, r := range rows {
		v := metric.Value(r)
		out[i] = ClassificationRecord{DemandAggregate: r, Metric: v}
		if v > 0 {
			total += v
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metric > out[j].Metric
	})

	var running float64
	for i := range out {
		if out[i].Metric <= 0 || total <= 0 {
			continue
		}
		running += out[i].Metric
		out[i].ContributionPct = out[i].Metric * 100 / total
		out[i].CumulativePct = running * 100 / total
	}
	return out
}

type scopeKey struct {
	location string
	channel  string
}

// ClassifyAll splits rows by (location, channel), classifies each scope on its
// own goroutine and concatenates the results in scope order.
func ClassifyAll(ctx context.Context, c Classifier, rows []DemandAggregate, metric Metric) ([]ClassificationRecord, error) {
	scopes := make(map[scopeKey][]DemandAggregate)
	var keys []scopeKey
	for _, r := range rows {
		k := scopeKey{location: r.Location, channel: r.Channel}
		if _, ok := scopes[k]; !ok {
			keys = append(keys, k)
		}
		scopes[k] = append(scopes[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].location != keys[j].location {
			return keys[i].location < keys[j].location
		}
		return keys[i].channel < keys[j].channel
	})

	results := make([][]ClassificationRecord, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.Classify(scopes[k], metric)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ClassificationRecord, 0, len(rows))
	for _, res := range results {
		out = append(out, res...)
	}
	return out, nil
}
