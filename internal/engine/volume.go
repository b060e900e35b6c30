package engine

import (
	"sort"
	"time"

	"osrs-flipper/internal/osrs"
)

// Lookback windows. The fine (5m) series only reaches back about a day,
// so week and month trends come from the coarse (24h) series.
const (
	window20m = 20 * time.Minute
	window1h  = time.Hour
	window24h = 24 * time.Hour
	window1w  = 7 * 24 * time.Hour
	window1mo = 30 * 24 * time.Hour
)

// WindowMetrics aggregates an item's fine and coarse timeseries into
// per-window volume, price and trend statistics relative to now.
// Returns nil when the fine series is empty: there is nothing to derive,
// and the caller counts the item as not enriched.
func WindowMetrics(fine, coarse []osrs.SeriesPoint, now time.Time) *ItemVolumes {
	if len(fine) == 0 {
		return nil
	}

	fine = sortedByTime(fine)
	coarse = sortedByTime(coarse)

	v := &ItemVolumes{
		BoughtTrend1h:  TrendFlat,
		SoldTrend1h:    TrendFlat,
		BoughtTrend24h: TrendFlat,
		SoldTrend24h:   TrendFlat,
		BoughtTrend1w:  TrendFlat,
		SoldTrend1w:    TrendFlat,
		BoughtTrend1mo: TrendFlat,
		SoldTrend1mo:   TrendFlat,
	}

	last20m := pointsSince(fine, now.Add(-window20m))
	last1h := pointsSince(fine, now.Add(-window1h))
	last24h := pointsSince(fine, now.Add(-window24h))

	v.Window20m = windowStats(last20m)
	v.Window1h = windowStats(last1h)
	v.Window24h = windowStats(last24h)

	v.BoughtTrend1h = ClassifyTrend(boughtPrices(last1h))
	v.SoldTrend1h = ClassifyTrend(soldPrices(last1h))
	v.BoughtTrend24h = ClassifyTrend(boughtPrices(last24h))
	v.SoldTrend24h = ClassifyTrend(soldPrices(last24h))

	lastWeek := pointsSince(coarse, now.Add(-window1w))
	lastMonth := pointsSince(coarse, now.Add(-window1mo))

	v.BoughtTrend1w = ClassifyTrend(boughtPrices(lastWeek))
	v.SoldTrend1w = ClassifyTrend(soldPrices(lastWeek))
	v.BoughtTrend1mo = ClassifyTrend(boughtPrices(lastMonth))
	v.SoldTrend1mo = ClassifyTrend(soldPrices(lastMonth))

	return v
}

// sortedByTime returns a chronologically sorted copy. The API usually
// serves points oldest-first but does not guarantee it, and trend
// classification is order-sensitive.
func sortedByTime(points []osrs.SeriesPoint) []osrs.SeriesPoint {
	out := make([]osrs.SeriesPoint, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// pointsSince keeps observations with timestamp >= cutoff. The lower
// window edge is inclusive.
func pointsSince(points []osrs.SeriesPoint, cutoff time.Time) []osrs.SeriesPoint {
	edge := cutoff.Unix()
	var out []osrs.SeriesPoint
	for _, p := range points {
		if p.Timestamp >= edge {
			out = append(out, p)
		}
	}
	return out
}

func windowStats(points []osrs.SeriesPoint) WindowStats {
	var s WindowStats
	var boughtSum, soldSum, marginSum float64
	var boughtN, soldN, marginN int

	for _, p := range points {
		s.BoughtVolume += p.HighPriceVolume
		s.SoldVolume += p.LowPriceVolume
		if p.AvgHighPrice != nil {
			boughtSum += *p.AvgHighPrice
			boughtN++
		}
		if p.AvgLowPrice != nil {
			soldSum += *p.AvgLowPrice
			soldN++
		}
		if p.AvgHighPrice != nil && p.AvgLowPrice != nil {
			marginSum += *p.AvgHighPrice - *p.AvgLowPrice
			marginN++
		}
	}

	if boughtN > 0 {
		s.AvgBoughtPrice = boughtSum / float64(boughtN)
	}
	if soldN > 0 {
		s.AvgSoldPrice = soldSum / float64(soldN)
	}
	if marginN > 0 {
		s.AvgMarginGP = marginSum / float64(marginN)
	}
	return s
}

func boughtPrices(points []osrs.SeriesPoint) []float64 {
	var out []float64
	for _, p := range points {
		if p.AvgHighPrice != nil {
			out = append(out, *p.AvgHighPrice)
		}
	}
	return out
}

func soldPrices(points []osrs.SeriesPoint) []float64 {
	var out []float64
	for _, p := range points {
		if p.AvgLowPrice != nil {
			out = append(out, *p.AvgLowPrice)
		}
	}
	return out
}
