package engine

import (
	"time"
)

// Trend is the qualitative direction of a price series over a window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendFlat       Trend = "flat"
)

// WindowStats aggregates one lookback window of timeseries observations.
// Zero values mean "window contained no observations", not "unknown".
type WindowStats struct {
	BoughtVolume   int64   `json:"bought_volume"`
	SoldVolume     int64   `json:"sold_volume"`
	AvgBoughtPrice float64 `json:"avg_bought_price"`
	AvgSoldPrice   float64 `json:"avg_sold_price"`
	AvgMarginGP    float64 `json:"avg_margin_gp"`
}

// ItemVolumes holds everything volume enrichment derives for one item.
// A nil *ItemVolumes on an Item means enrichment has not produced data
// for it; a present struct with zero stats means enrichment ran and the
// windows were empty. The two states filter differently.
type ItemVolumes struct {
	Window20m WindowStats `json:"window_20m"`
	Window1h  WindowStats `json:"window_1h"`
	Window24h WindowStats `json:"window_24h"`

	BoughtTrend1h  Trend `json:"bought_price_trend_1h"`
	SoldTrend1h    Trend `json:"sold_price_trend_1h"`
	BoughtTrend24h Trend `json:"bought_price_trend_24h"`
	SoldTrend24h   Trend `json:"sold_price_trend_24h"`
	BoughtTrend1w  Trend `json:"bought_price_trend_1w"`
	SoldTrend1w    Trend `json:"sold_price_trend_1w"`
	BoughtTrend1mo Trend `json:"bought_price_trend_1mo"`
	SoldTrend1mo   Trend `json:"sold_price_trend_1mo"`
}

// defaultTrends fills unset trend fields with TrendFlat. Trend is a
// closed value set; the empty string only means the producer never
// classified that window.
func (v *ItemVolumes) defaultTrends() {
	for _, t := range []*Trend{
		&v.BoughtTrend1h, &v.SoldTrend1h,
		&v.BoughtTrend24h, &v.SoldTrend24h,
		&v.BoughtTrend1w, &v.SoldTrend1w,
		&v.BoughtTrend1mo, &v.SoldTrend1mo,
	} {
		if *t == "" {
			*t = TrendFlat
		}
	}
}

// Item is one row of the canonical dataset.
//
// Price naming follows flipping convention, which is counterintuitive:
// BoughtPrice is the highest standing buy order, i.e. the price at which
// a flipper can SELL instantly; SoldPrice is the lowest standing sell
// order, the price at which a flipper can BUY instantly.
type Item struct {
	ID       int    `json:"item_id"`
	Name     string `json:"name"`
	Members  bool   `json:"members"`
	BuyLimit *int   `json:"buy_limit,omitempty"` // max quantity per trading period; nil when unknown

	BoughtPrice *int       `json:"bought_price,omitempty"`
	SoldPrice   *int       `json:"sold_price,omitempty"`
	LastBought  *time.Time `json:"last_bought_time,omitempty"`
	LastSold    *time.Time `json:"last_sold_time,omitempty"`

	// Derived, recomputed by ComputeDerived. Valid only when HasPrices.
	MarginGP       int     `json:"margin_gp"`
	MarginPct      float64 `json:"margin_pct"`
	FlipEfficiency float64 `json:"flip_efficiency"`

	Volumes *ItemVolumes `json:"volumes,omitempty"`
}

// HasPrices reports whether both sides of the spread are known.
// Margin-derived fields are meaningless without them.
func (it *Item) HasPrices() bool {
	return it.BoughtPrice != nil && it.SoldPrice != nil
}

// Clone returns a deep copy. Pointer fields are duplicated so mutating
// the copy can never reach the original.
func (it Item) Clone() Item {
	c := it
	c.BuyLimit = cloneInt(it.BuyLimit)
	c.BoughtPrice = cloneInt(it.BoughtPrice)
	c.SoldPrice = cloneInt(it.SoldPrice)
	c.LastBought = cloneTime(it.LastBought)
	c.LastSold = cloneTime(it.LastSold)
	if it.Volumes != nil {
		v := *it.Volumes
		c.Volumes = &v
	}
	return c
}

// CloneItems deep-copies a dataset slice.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
