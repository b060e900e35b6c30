package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"osrs-flipper/internal/osrs"
)

// BuildItems merges the latest price snapshot with item metadata into the
// canonical dataset, ordered by item ID.
//
// The join is price-driven: every priced item is kept even when its
// metadata lookup is missing (name stays empty, buy limit nil), while
// metadata-only items are dropped. Metadata is static and occasionally
// lags new items; a missing lookup should not cost us a priced row.
func BuildItems(mappings []osrs.ItemMapping, latest map[int]osrs.PriceInfo) []Item {
	byID := make(map[int]osrs.ItemMapping, len(mappings))
	for _, m := range mappings {
		byID[m.ID] = m
	}

	items := make([]Item, 0, len(latest))
	for id, price := range latest {
		it := Item{ID: id}
		if m, ok := byID[id]; ok {
			it.Name = m.Name
			it.Members = m.Members
			it.BuyLimit = cloneInt(m.BuyLimit)
		}
		it.BoughtPrice = cloneInt(price.High)
		it.SoldPrice = cloneInt(price.Low)
		it.LastBought = unixTime(price.HighTime)
		it.LastSold = unixTime(price.LowTime)
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	ComputeDerived(items)
	return items
}

// ComputeDerived recomputes margin_gp, margin_pct and flip_efficiency in
// place. Safe to call repeatedly: loads, restores and enrichment all
// finish with a pass through here so the derived fields can never go
// stale relative to the primitives.
func ComputeDerived(items []Item) {
	for i := range items {
		it := &items[i]
		it.MarginGP = 0
		it.MarginPct = 0
		it.FlipEfficiency = 0
		if it.Volumes != nil {
			it.Volumes.defaultTrends()
		}

		if !it.HasPrices() {
			continue
		}

		sold := int(math.Round(float64(*it.SoldPrice)))
		it.MarginGP = *it.BoughtPrice - sold
		if *it.SoldPrice != 0 {
			pct := float64(*it.BoughtPrice-*it.SoldPrice) / float64(*it.SoldPrice) * 100
			it.MarginPct = math.Round(pct*100) / 100
		}

		// Liquidity-weighted opportunity score. Deliberately bound to the
		// 1h window only; zero until volumes are loaded.
		if it.Volumes != nil {
			avgVol := float64(it.Volumes.Window1h.BoughtVolume+it.Volumes.Window1h.SoldVolume) / 2
			it.FlipEfficiency = float64(it.MarginGP) * avgVol
		}
	}
}

func unixTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

// RelativeTime renders a timestamp as a coarse human age relative to now.
// A nil timestamp renders as "N/A". The string is a point-in-time
// rendering and is never stored.
func RelativeTime(ts *time.Time, now time.Time) string {
	if ts == nil {
		return "N/A"
	}
	seconds := now.Sub(*ts).Seconds()

	switch {
	case seconds < 60:
		return "a minute ago"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", int(seconds/60))
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", int(seconds/3600))
	case seconds < 7*86400:
		return fmt.Sprintf("%dd ago", int(seconds/86400))
	case seconds < 30*86400:
		return fmt.Sprintf("%dw ago", int(seconds/(7*86400)))
	default:
		return fmt.Sprintf("%dmo ago", int(seconds/(30*86400)))
	}
}
