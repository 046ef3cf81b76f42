package replenishment

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

type demandKey struct {
	location string
	channel  string
	item     string
}

// Aggregate builds one DemandAggregate per (location, item) in the cross
// product of locations and items (catalog items, then sold items missing from
// the catalog). With splitByChannel the product also runs over the channels
// observed at each location in any period; a location with no observed
// channel gets defaultChannel. Sales outside the window add no quantity.
func Aggregate(records []SalesRecord, catalog []CatalogEntry, locations []string, w Window, splitByChannel bool, defaultChannel string) []DemandAggregate {
	nPeriods := len(w.Periods)
	quantities := make(map[demandKey][]float64)
	channelsAt := make(map[string]map[string]struct{})

	for _, r := range records {
		k := demandKey{location: r.Location, item: r.ItemCode}
		if splitByChannel {
			k.channel = r.Channel
			if channelsAt[r.Location] == nil {
				channelsAt[r.Location] = make(map[string]struct{})
			}
			channelsAt[r.Location][r.Channel] = struct{}{}
		}
		idx, ok := w.Locate(r.Date)
		if !ok {
			continue
		}
		q, ok := quantities[k]
		if !ok {
			q = make([]float64, nPeriods)
			quantities[k] = q
		}
		q[idx] += r.Quantity
	}

	items := itemUniverse(records, catalog)

	out := make([]DemandAggregate, 0, len(locations)*len(items))
	for _, location := range locations {
		channels := []string{""}
		if splitByChannel {
			channels = sortedKeys(channelsAt[location])
			if len(channels) == 0 {
				channels = []string{defaultChannel}
			}
		}
		for _, channel := range channels {
			for _, item := range items {
				q, ok := quantities[demandKey{location: location, channel: channel, item: item.ItemCode}]
				if !ok {
					q = make([]float64, nPeriods)
				}
				out = append(out, newDemandAggregate(location, channel, item, q, w))
			}
		}
	}

	return out
}

func newDemandAggregate(location, channel string, item CatalogEntry, q []float64, w Window) DemandAggregate {
	d := DemandAggregate{
		Location:   location,
		Channel:    channel,
		ItemCode:   item.ItemCode,
		ItemName:   item.Name,
		Category:   item.Category,
		Brand:      item.Brand,
		Quantities: q,
	}
	if len(q) > 0 {
		d.Mean, d.Std = stat.PopMeanStdDev(q, nil)
	}
	for i, pw := range w.Periods {
		d.WMA += q[i] * pw.Weight
	}
	return d
}

func itemUniverse(records []SalesRecord, catalog []CatalogEntry) []CatalogEntry {
	items := make([]CatalogEntry, 0, len(catalog))
	known := make(map[string]struct{}, len(catalog))
	for _, c := range catalog {
		if _, ok := known[c.ItemCode]; ok {
			continue
		}
		known[c.ItemCode] = struct{}{}
		if c.Category == "" {
			c.Category = OthersCategory
		}
		items = append(items, c)
	}

	extra := make(map[string]struct{})
	for _, r := range records {
		if _, ok := known[r.ItemCode]; !ok {
			extra[r.ItemCode] = struct{}{}
		}
	}
	for _, code := range sortedKeys(extra) {
		items = append(items, CatalogEntry{ItemCode: code, Category: OthersCategory})
	}
	return items
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
