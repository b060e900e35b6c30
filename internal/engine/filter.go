package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"osrs-flipper/internal/logger"
)

// FilterOptions is a conjunction of independent, optional predicates.
// Nil fields are no-ops. Criteria are named from the flipper's point of
// view: BuyPrice bounds test SoldPrice (the price a buy fills at) and
// SellPrice bounds test BoughtPrice (the price a sell fills at).
type FilterOptions struct {
	BuyLimitMin *int
	BuyLimitMax *int

	BuyPriceMin  *int
	BuyPriceMax  *int
	SellPriceMin *int
	SellPriceMax *int

	MarginMin    *int
	MarginMax    *int
	MarginPctMin *float64
	MarginPctMax *float64

	// Dual-sided: both bought and sold volume in the window must meet
	// the threshold. A one-sided spike does not qualify.
	Volume1hMin  *int64
	Volume24hMin *int64

	MembersOnly *bool

	// Recency: an item passes when either side traded within the cutoff.
	MaxHoursSinceUpdate *float64

	NameContains *string
	ExcludeNames []string // case-insensitive substrings, any match excludes

	SortBy  string // empty = no sorting
	SortAsc bool   // default descending
	Limit   int    // 0 = unbounded
}

// ApplyFilter runs the pipeline over a snapshot of items and returns the
// filtered, sorted, truncated result. The input slice is never mutated.
//
// Rows missing either price are dropped before any criterion runs.
// Volume criteria are skipped with a warning unless enrichment has run
// at least once (volumeLoaded); once it has, items that were not
// successfully enriched carry zero volumes and fail the threshold.
func ApplyFilter(items []Item, opts FilterOptions, volumeLoaded bool, now time.Time) []Item {
	if !volumeLoaded && (opts.Volume1hMin != nil || opts.Volume24hMin != nil) {
		logger.Warn("FILTER", "volume criteria skipped: volume data not loaded yet")
	}

	out := make([]Item, 0, len(items))
	for i := range items {
		if !items[i].HasPrices() {
			continue
		}
		if passes(&items[i], opts, volumeLoaded, now) {
			out = append(out, items[i].Clone())
		}
	}

	if opts.SortBy != "" {
		sortItems(out, opts.SortBy, opts.SortAsc)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func passes(it *Item, opts FilterOptions, volumeLoaded bool, now time.Time) bool {
	if opts.BuyLimitMin != nil && (it.BuyLimit == nil || *it.BuyLimit < *opts.BuyLimitMin) {
		return false
	}
	if opts.BuyLimitMax != nil && (it.BuyLimit == nil || *it.BuyLimit > *opts.BuyLimitMax) {
		return false
	}

	if opts.BuyPriceMin != nil && *it.SoldPrice < *opts.BuyPriceMin {
		return false
	}
	if opts.BuyPriceMax != nil && *it.SoldPrice > *opts.BuyPriceMax {
		return false
	}
	if opts.SellPriceMin != nil && *it.BoughtPrice < *opts.SellPriceMin {
		return false
	}
	if opts.SellPriceMax != nil && *it.BoughtPrice > *opts.SellPriceMax {
		return false
	}

	if opts.MarginMin != nil && it.MarginGP < *opts.MarginMin {
		return false
	}
	if opts.MarginMax != nil && it.MarginGP > *opts.MarginMax {
		return false
	}
	if opts.MarginPctMin != nil && it.MarginPct < *opts.MarginPctMin {
		return false
	}
	if opts.MarginPctMax != nil && it.MarginPct > *opts.MarginPctMax {
		return false
	}

	if volumeLoaded {
		if opts.Volume1hMin != nil {
			b, s := volumes1h(it)
			if b < *opts.Volume1hMin || s < *opts.Volume1hMin {
				return false
			}
		}
		if opts.Volume24hMin != nil {
			b, s := volumes24h(it)
			if b < *opts.Volume24hMin || s < *opts.Volume24hMin {
				return false
			}
		}
	}

	if opts.MembersOnly != nil && it.Members != *opts.MembersOnly {
		return false
	}

	if opts.MaxHoursSinceUpdate != nil {
		cutoff := now.Add(-time.Duration(*opts.MaxHoursSinceUpdate * float64(time.Hour)))
		recentBought := it.LastBought != nil && !it.LastBought.Before(cutoff)
		recentSold := it.LastSold != nil && !it.LastSold.Before(cutoff)
		if !recentBought && !recentSold {
			return false
		}
	}

	if opts.NameContains != nil {
		if !strings.Contains(strings.ToLower(it.Name), strings.ToLower(*opts.NameContains)) {
			return false
		}
	}
	if len(opts.ExcludeNames) > 0 {
		name := strings.ToLower(it.Name)
		for _, excl := range opts.ExcludeNames {
			if excl != "" && strings.Contains(name, strings.ToLower(excl)) {
				return false
			}
		}
	}

	return true
}

func volumes1h(it *Item) (bought, sold int64) {
	if it.Volumes == nil {
		return 0, 0
	}
	return it.Volumes.Window1h.BoughtVolume, it.Volumes.Window1h.SoldVolume
}

func volumes24h(it *Item) (bought, sold int64) {
	if it.Volumes == nil {
		return 0, 0
	}
	return it.Volumes.Window24h.BoughtVolume, it.Volumes.Window24h.SoldVolume
}

// sortItems orders items by a named column. An unknown column is a
// warned no-op, not an error.
func sortItems(items []Item, column string, asc bool) {
	less, ok := lessFunc(column)
	if !ok {
		logger.Warn("FILTER", fmt.Sprintf("unknown sort column %q, leaving order unchanged", column))
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return less(&items[i], &items[j])
		}
		return less(&items[j], &items[i])
	})
}

func lessFunc(column string) (func(a, b *Item) bool, bool) {
	switch column {
	case "name":
		return func(a, b *Item) bool { return a.Name < b.Name }, true
	case "margin_gp":
		return func(a, b *Item) bool { return a.MarginGP < b.MarginGP }, true
	case "margin_pct":
		return func(a, b *Item) bool { return a.MarginPct < b.MarginPct }, true
	case "flip_efficiency":
		return func(a, b *Item) bool { return a.FlipEfficiency < b.FlipEfficiency }, true
	case "buy_limit":
		return func(a, b *Item) bool { return lessIntPtr(a.BuyLimit, b.BuyLimit) }, true
	case "bought_price":
		return func(a, b *Item) bool { return lessIntPtr(a.BoughtPrice, b.BoughtPrice) }, true
	case "sold_price":
		return func(a, b *Item) bool { return lessIntPtr(a.SoldPrice, b.SoldPrice) }, true
	case "last_bought_time":
		return func(a, b *Item) bool { return lessTimePtr(a.LastBought, b.LastBought) }, true
	case "last_sold_time":
		return func(a, b *Item) bool { return lessTimePtr(a.LastSold, b.LastSold) }, true
	case "bought_volume_1h":
		return func(a, b *Item) bool { ab, _ := volumes1h(a); bb, _ := volumes1h(b); return ab < bb }, true
	case "sold_volume_1h":
		return func(a, b *Item) bool { _, as := volumes1h(a); _, bs := volumes1h(b); return as < bs }, true
	case "bought_volume_24h":
		return func(a, b *Item) bool { ab, _ := volumes24h(a); bb, _ := volumes24h(b); return ab < bb }, true
	case "sold_volume_24h":
		return func(a, b *Item) bool { _, as := volumes24h(a); _, bs := volumes24h(b); return as < bs }, true
	default:
		return nil, false
	}
}

// nil sorts before any value, so missing data sinks in descending order.
func lessIntPtr(a, b *int) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return *a < *b
}

func lessTimePtr(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}
