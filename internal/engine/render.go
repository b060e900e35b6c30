package engine

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// Column order and number formatting below are a presentation contract:
// downstream text consumers parse this table, so changes here are
// breaking changes.

var baseColumns = []string{
	"name", "margin_gp", "margin_pct", "flip_efficiency", "buy_limit",
	"sold_price", "sold_time_rel", "bought_price", "bought_time_rel",
}

var volumeColumns = []string{
	"sold_volume_1h", "bought_volume_1h",
	"sold_price_trend_1h", "bought_price_trend_1h",
	"sold_volume_24h", "bought_volume_24h",
	"sold_price_trend_24h", "bought_price_trend_24h",
}

// RenderTable renders the dataset as an aligned text table. Volume
// columns appear only once enrichment has run. Relative times are
// computed against now at render time.
func RenderTable(items []Item, now time.Time, volumeLoaded bool) string {
	if len(items) == 0 {
		return "No data available. Load data first.\n"
	}

	columns := baseColumns
	if volumeLoaded {
		columns = append(append([]string{}, baseColumns...), volumeColumns...)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d items\n", len(items))

	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	for i := range items {
		it := &items[i]
		row := []string{
			it.Name,
			humanize.Comma(int64(it.MarginGP)),
			fmt.Sprintf("%.2f%%", it.MarginPct),
			formatScore(it.FlipEfficiency),
			formatIntPtr(it.BuyLimit),
			formatIntPtr(it.SoldPrice),
			RelativeTime(it.LastSold, now),
			formatIntPtr(it.BoughtPrice),
			RelativeTime(it.LastBought, now),
		}
		if volumeLoaded {
			row = append(row, volumeCells(it.Volumes)...)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()

	return sb.String()
}

func volumeCells(v *ItemVolumes) []string {
	if v == nil {
		return []string{"0", "0", string(TrendFlat), string(TrendFlat), "0", "0", string(TrendFlat), string(TrendFlat)}
	}
	return []string{
		humanize.Comma(v.Window1h.SoldVolume),
		humanize.Comma(v.Window1h.BoughtVolume),
		trendCell(v.SoldTrend1h),
		trendCell(v.BoughtTrend1h),
		humanize.Comma(v.Window24h.SoldVolume),
		humanize.Comma(v.Window24h.BoughtVolume),
		trendCell(v.SoldTrend24h),
		trendCell(v.BoughtTrend24h),
	}
}

// An unclassified trend prints as flat, never as an empty cell.
func trendCell(t Trend) string {
	if t == "" {
		return string(TrendFlat)
	}
	return string(t)
}

func formatIntPtr(p *int) string {
	if p == nil {
		return "N/A"
	}
	return humanize.Comma(int64(*p))
}

func formatScore(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return humanize.Comma(int64(v))
}
