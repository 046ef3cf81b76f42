package replenishment

import (
	"fmt"
	"sort"
	"time"
)

// PeriodPolicy decides how transaction dates are bucketed.
type PeriodPolicy string

const (
	// PeriodMonth buckets by calendar month.
	PeriodMonth PeriodPolicy = "month"
	// PeriodBlock30 buckets into 30-day blocks ending at the reference date.
	PeriodBlock30 PeriodPolicy = "block30"
)

const blockDays = 30

// DefaultWeights is the recency schedule, newest period first.
var DefaultWeights = []float64{0.5, 0.3, 0.2}

// Period is a bucket of sales dates. End is the last day included.
type Period struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodWeight is a period with its recency weight.
type PeriodWeight struct {
	Period
	Weight float64 `json:"weight"`
}

// Window is the set of periods that take part in an analysis, oldest first.
type Window struct {
	Policy    PeriodPolicy   `json:"policy"`
	Reference time.Time      `json:"reference"`
	Periods   []PeriodWeight `json:"periods"`

	index map[string]int
}

func periodOf(date time.Time, policy PeriodPolicy, ref time.Time) (Period, bool) {
	date = dateOnly(date)
	switch policy {
	case PeriodBlock30:
		if date.After(ref) {
			return Period{}, false
		}
		days := int(ref.Sub(date).Hours() / 24)
		block := days / blockDays
		end := ref.AddDate(0, 0, -blockDays*block)
		start := end.AddDate(0, 0, -(blockDays - 1))
		return Period{
			Key:   start.Format("2006-01-02") + ".." + end.Format("2006-01-02"),
			Start: start,
			End:   end,
		}, true
	default:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{
			Key:   start.Format("2006-01"),
			Start: start,
			End:   start.AddDate(0, 1, -1),
		}, true
	}
}

// SelectPeriods returns the k most recent distinct periods present in records,
// oldest first. For PeriodBlock30 a zero ref means the latest sales date.
func SelectPeriods(records []SalesRecord, policy PeriodPolicy, ref time.Time, k int) ([]Period, time.Time) {
	if policy == PeriodBlock30 {
		if ref.IsZero() {
			for _, r := range records {
				if r.Date.After(ref) {
					ref = r.Date
				}
			}
		}
		ref = dateOnly(ref)
	}

	seen := make(map[string]Period)
	for _, r := range records {
		p, ok := periodOf(r.Date, policy, ref)
		if !ok {
			continue
		}
		seen[p.Key] = p
	}

	periods := make([]Period, 0, len(seen))
	for _, p := range seen {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})

	if k > 0 && len(periods) > k {
		periods = periods[len(periods)-k:]
	}
	return periods, ref
}

// NewWindow picks the most recent len(weights) periods and assigns weights
// by recency: weights[0] goes to the newest period.
func NewWindow(records []SalesRecord, policy PeriodPolicy, ref time.Time, weights []float64) (Window, error) {
	if len(weights) == 0 {
		return Window{}, fmt.Errorf("%w: weight schedule is empty", ErrInvalidConfig)
	}
	if policy != PeriodMonth && policy != PeriodBlock30 {
		return Window{}, fmt.Errorf("%w: unknown period policy %q", ErrInvalidConfig, policy)
	}

	periods, ref := SelectPeriods(records, policy, ref, len(weights))
	w := Window{
		Policy:    policy,
		Reference: ref,
		Periods:   make([]PeriodWeight, len(periods)),
		index:     make(map[string]int, len(periods)),
	}
	for i, p := range periods {
		rank := len(periods) - 1 - i
		w.Periods[i] = PeriodWeight{Period: p, Weight: weights[rank]}
		w.index[p.Key] = i
	}
	return w, nil
}

// Locate returns the position of date's period inside the window.
func (w Window) Locate(date time.Time) (int, bool) {
	p, ok := periodOf(date, w.Policy, w.Reference)
	if !ok {
		return 0, false
	}
	i, ok := w.index[p.Key]
	return i, ok
}

// Keys lists the period keys, oldest first.
func (w Window) Keys() []string {
	keys := make([]string, len(w.Periods))
	for i, p := range w.Periods {
		keys[i] = p.Key
	}
	return keys
}
