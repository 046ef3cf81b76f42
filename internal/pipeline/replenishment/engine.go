package replenishment

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/tabular"
)

// Input is a fully materialized set of input tables.
type Input struct {
	Sales   []RawSale
	Catalog []CatalogEntry
	Stock   []StockSnapshot
}

// Engine runs normalization, weighting, classification, replenishment and
// allocation over one Input. An Engine holds no per-run state and may be
// reused.
type Engine struct {
	cfg        Config
	normalizer *Normalizer
	classifier Classifier
	calculator *Calculator
	allocator  *Allocator
}

// NewEngine validates cfg and prepares the stages.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metric, _ := ParseMetric(string(cfg.Metric))
	cfg.Metric = metric
	if cfg.Policy == "" {
		cfg.Policy = PolicyCumulative
	}
	classifier, _ := NewClassifier(cfg.Policy)

	normalizer := NewNormalizer(cfg.Mapping)
	if err := resolveLocations(&cfg, normalizer); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		normalizer: normalizer,
		classifier: classifier,
		calculator: NewCalculator(cfg.MinStockFactor, cfg.MaxMultipliers, cfg.Dispersion),
		allocator:  NewAllocator(),
	}, nil
}

// resolveLocations maps the hub and the fixed location list to the city
// names rows carry, the same way stock column headers are resolved, so
// "jakarta" and "JKT" both mean Jakarta. Duplicates after resolution are
// dropped.
func resolveLocations(cfg *Config, n *Normalizer) error {
	if cfg.HubLocation != "" {
		hub := n.Location(cfg.HubLocation, "")
		if hub == OthersLocation {
			return fmt.Errorf("%w: unknown hub location %q", ErrInvalidConfig, cfg.HubLocation)
		}
		cfg.HubLocation = hub
	}

	if len(cfg.Locations) == 0 {
		return nil
	}
	resolved := make([]string, 0, len(cfg.Locations))
	seen := make(map[string]struct{}, len(cfg.Locations))
	for _, name := range cfg.Locations {
		loc := n.Location(name, "")
		if loc == OthersLocation {
			return fmt.Errorf("%w: unknown location %q", ErrInvalidConfig, name)
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		resolved = append(resolved, loc)
	}
	cfg.Locations = resolved
	return nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Normalizer exposes the location mapping used by the engine.
func (e *Engine) Normalizer() *Normalizer {
	return e.normalizer
}

// Load turns input tables into an Input. The stock table is optional in the
// channel-aware variant; pass a zero Table to skip it.
func (e *Engine) Load(sales, catalog, stock tabular.Table) (Input, error) {
	var in Input
	var err error

	if in.Sales, err = SalesFromTable(sales); err != nil {
		return Input{}, err
	}
	if in.Catalog, err = CatalogFromTable(catalog); err != nil {
		return Input{}, err
	}
	if len(stock.Header) == 0 && e.cfg.SplitByChannel {
		return in, nil
	}
	if in.Stock, err = StockFromWideTable(stock, e.cfg.StockColumnPrefix, e.normalizer); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Run executes the stages in order and returns the report.
func (e *Engine) Run(ctx context.Context, in Input) (*Report, error) {
	// 1. Normalize
	sales, stats := e.normalizer.Normalize(in.Sales)
	log.Debug().
		Int("input", stats.Input).
		Int("kept", stats.Kept).
		Int("dropped_location", stats.DroppedLocation).
		Int("dropped_date", stats.DroppedDate).
		Msg("sales normalized")
	if len(sales) == 0 {
		return nil, ErrNoSales
	}

	// 2. Weight periods and aggregate demand
	window, err := NewWindow(sales, e.cfg.Period, e.cfg.ReferenceDate, e.cfg.Weights)
	if err != nil {
		return nil, err
	}
	locations := e.locations(sales)
	demand := Aggregate(sales, in.Catalog, locations, window, e.cfg.SplitByChannel, e.normalizer.DefaultChannel())
	log.Debug().
		Strs("periods", window.Keys()).
		Int("locations", len(locations)).
		Int("rows", len(demand)).
		Msg("demand aggregated")

	// 3. Classify per scope
	classified, err := ClassifyAll(ctx, e.classifier, demand, e.cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// 4-6. Replenishment parameters and PO allocation
	rows := make([]POAllocationRecord, len(classified))
	for i, rec := range classified {
		rows[i] = POAllocationRecord{ReplenishmentRecord: e.calculator.Calculate(rec)}
	}
	if !e.cfg.SplitByChannel {
		e.allocate(rows, in.Stock)
	}
	sortRows(rows)
	log.Debug().Int("rows", len(rows)).Str("policy", string(e.classifier.Policy())).Msg("replenishment computed")

	return &Report{
		Window:         window,
		Policy:         e.classifier.Policy(),
		Metric:         e.cfg.Metric,
		HubLocation:    e.cfg.HubLocation,
		SplitByChannel: e.cfg.SplitByChannel,
		Stats:          stats,
		Normalized:     sales,
		Demand:         demand,
		Rows:           rows,
	}, nil
}

func (e *Engine) locations(sales []SalesRecord) []string {
	if len(e.cfg.Locations) > 0 {
		return e.cfg.Locations
	}
	seen := make(map[string]struct{})
	for _, s := range sales {
		seen[s.Location] = struct{}{}
	}
	return sortedKeys(seen)
}

type stockKey struct {
	location string
	item     string
}

func (e *Engine) allocate(rows []POAllocationRecord, stock []StockSnapshot) {
	onHand := make(map[stockKey]float64, len(stock))
	networkStock := make(map[string]float64)
	for _, s := range stock {
		onHand[stockKey{location: s.Location, item: s.ItemCode}] += s.Quantity
		networkStock[s.ItemCode] += s.Quantity
	}
	networkDemand := make(map[string]float64)
	for _, r := range rows {
		// Net returns count as no demand, as in the calculator.
		networkDemand[r.ItemCode] += math.Max(0, r.WMA)
	}

	for i := range rows {
		r := &rows[i]
		r.Stock = onHand[stockKey{location: r.Location, item: r.ItemCode}]
		r.HubStock = onHand[stockKey{location: e.cfg.HubLocation, item: r.ItemCode}]
		r.NetworkStock = networkStock[r.ItemCode]
		r.NetworkDemand = networkDemand[r.ItemCode]
		r.AddStock = NewAddStock(r.ROP, r.Stock)
		r.SuggestedPO = e.allocator.Allocate(AllocationInput{
			Location:      r.Location,
			ItemCode:      r.ItemCode,
			Stock:         r.Stock,
			HubStock:      r.HubStock,
			NetworkStock:  r.NetworkStock,
			NetworkDemand: r.NetworkDemand,
			SO:            r.WMA,
			Add:           r.AddStock,
		})
		r.Restock = RestockFlag(r.NetworkStock, r.NetworkDemand)
		r.Status = StockStatus(r.Class, r.Stock, r.ROP, r.MaxStock)
	}
}

// sortRows orders by location, channel, class, metric descending, then item
// code.
func sortRows(rows []POAllocationRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Metric != b.Metric {
			return a.Metric > b.Metric
		}
		return a.ItemCode < b.ItemCode
	})
}
