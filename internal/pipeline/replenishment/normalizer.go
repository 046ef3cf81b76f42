package replenishment

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MembershipSet assigns Label to any customer in Customers.
type MembershipSet struct {
	Label     string   `mapstructure:"label" json:"label"`
	Customers []string `mapstructure:"customers" json:"customers"`
}

// Mapping describes how raw department and customer codes resolve to cities
// and sales channels. Keys are matched case-insensitively.
type Mapping struct {
	// Departments maps a raw department code to its canonical department.
	Departments map[string]string `mapstructure:"departments" json:"departments"`
	// Shared lists, per raw department code, the customer sets that force a
	// different canonical department. The first matching set wins.
	Shared map[string][]MembershipSet `mapstructure:"shared" json:"shared"`
	// Cities maps a canonical department to the output city.
	Cities map[string]string `mapstructure:"cities" json:"cities"`
	// Channels are checked in order; the first set containing the customer
	// gives the channel label.
	Channels       []MembershipSet `mapstructure:"channels" json:"channels"`
	DefaultChannel string          `mapstructure:"default_channel" json:"default_channel"`
}

// DefaultMapping is the department layout of the distribution network.
func DefaultMapping() Mapping {
	return Mapping{
		Departments: map[string]string{
			"JKT":  "JKT",
			"JKT1": "JKT",
			"HO":   "JKT",
			"SBY":  "SBY",
			"BDG":  "BDG",
			"MDN":  "MDN",
			"MKS":  "MKS",
			"PDG":  "PDG",
		},
		Shared: map[string][]MembershipSet{
			"HO": {
				{Label: "BDG", Customers: []string{"CV MAJU JAYA BANDUNG", "TOKO SINAR BANDUNG"}},
				{Label: "SBY", Customers: []string{"UD SUMBER REJEKI SURABAYA"}},
			},
		},
		Cities: map[string]string{
			"JKT": "Jakarta",
			"SBY": "Surabaya",
			"BDG": "Bandung",
			"MDN": "Medan",
			"MKS": "Makassar",
			"PDG": "Padang",
		},
		Channels: []MembershipSet{
			{Label: "Marketplace", Customers: []string{"SHOPEE", "TOKOPEDIA", "LAZADA", "TIKTOK SHOP", "BLIBLI"}},
			{Label: "Website", Customers: []string{"WEBSITE", "WEB ORDER"}},
		},
		DefaultChannel: "Offline",
	}
}

type labelSet struct {
	label     string
	customers map[string]struct{}
}

// Normalizer cleans raw sales rows. It is safe for concurrent use once built.
type Normalizer struct {
	departments map[string]string
	shared      map[string][]labelSet
	cities      map[string]string
	cityNames   map[string]string
	channels    []labelSet
	defaultChan string
}

// NewNormalizer compiles m into case-insensitive lookup tables.
func NewNormalizer(m Mapping) *Normalizer {
	n := &Normalizer{
		departments: make(map[string]string, len(m.Departments)),
		shared:      make(map[string][]labelSet, len(m.Shared)),
		cities:      make(map[string]string, len(m.Cities)),
		cityNames:   make(map[string]string, len(m.Cities)),
		defaultChan: m.DefaultChannel,
	}
	if n.defaultChan == "" {
		n.defaultChan = "Offline"
	}

	for code, dept := range m.Departments {
		n.departments[key(code)] = key(dept)
	}
	for code, sets := range m.Shared {
		n.shared[key(code)] = compileSets(sets)
	}
	for dept, city := range m.Cities {
		city = strings.TrimSpace(city)
		n.cities[key(dept)] = city
		n.cityNames[key(city)] = city
	}
	n.channels = compileSets(m.Channels)

	return n
}

func compileSets(sets []MembershipSet) []labelSet {
	out := make([]labelSet, 0, len(sets))
	for _, s := range sets {
		ls := labelSet{label: strings.TrimSpace(s.Label), customers: make(map[string]struct{}, len(s.Customers))}
		for _, c := range s.Customers {
			ls.customers[key(c)] = struct{}{}
		}
		out = append(out, ls)
	}
	return out
}

func key(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func matchSet(sets []labelSet, customer string) (string, bool) {
	c := key(customer)
	if c == "" {
		return "", false
	}
	for _, s := range sets {
		if _, ok := s.customers[c]; ok {
			return s.label, true
		}
	}
	return "", false
}

// Location resolves a department code, disambiguated by customer when the
// code is shared, to an output city. Codes that already are a city name are
// accepted as is. Anything else is OthersLocation.
func (n *Normalizer) Location(department, customer string) string {
	code := key(department)
	if code == "" {
		return OthersLocation
	}

	canonical, known := n.departments[code]
	if sets, ok := n.shared[code]; ok {
		if label, ok := matchSet(sets, customer); ok {
			canonical, known = key(label), true
		}
	}
	if !known {
		canonical = code
	}

	if city, ok := n.cities[canonical]; ok {
		return city
	}
	if city, ok := n.cityNames[code]; ok {
		return city
	}
	return OthersLocation
}

// Channel labels a customer by the first channel set containing it.
func (n *Normalizer) Channel(customer string) string {
	if label, ok := matchSet(n.channels, customer); ok {
		return label
	}
	return n.defaultChan
}

// DefaultChannel is the label of customers in no channel set.
func (n *Normalizer) DefaultChannel() string {
	return n.defaultChan
}

// Normalize maps, parses and filters raw sales rows. Rows with no item code,
// an unmapped location or an unparseable date are dropped; unparseable
// quantities become 0.
func (n *Normalizer) Normalize(rows []RawSale) ([]SalesRecord, NormalizeStats) {
	stats := NormalizeStats{Input: len(rows)}
	out := make([]SalesRecord, 0, len(rows))

	for _, raw := range rows {
		item := strings.TrimSpace(raw.ItemCode)
		if item == "" || isPlaceholder(item) {
			stats.DroppedItem++
			continue
		}

		location := n.Location(raw.Department, raw.Customer)
		if location == OthersLocation {
			stats.DroppedLocation++
			continue
		}

		date, ok := ParseDate(raw.Date)
		if !ok {
			stats.DroppedDate++
			continue
		}

		qty, ok := ParseQuantity(raw.Quantity)
		if !ok {
			stats.ZeroedQuantity++
		}

		out = append(out, SalesRecord{
			ItemCode: item,
			Location: location,
			Channel:  n.Channel(raw.Customer),
			Date:     date,
			Quantity: qty,
		})
	}

	stats.Kept = len(out)
	return out, stats
}

func isPlaceholder(v string) bool {
	switch strings.ToLower(v) {
	case "-", "nan", "null", "none", "n/a", "#n/a":
		return true
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"2006/01/02",
	"20060102",
	"02 Jan 2006",
	"2 Jan 2006",
}

// excelEpoch is day 0 of the 1900 date system as used by spreadsheet serials.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the layouts seen in sales exports plus spreadsheet serial
// day numbers. The result is truncated to the calendar day in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isPlaceholder(s) {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 200000 {
		days := math.Floor(serial)
		return excelEpoch.AddDate(0, 0, int(days)), true
	}

	return time.Time{}, false
}

// ParseQuantity coerces s to a number, stripping thousands separators. The
// second result is false when s was not numeric, in which case 0 is returned.
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
