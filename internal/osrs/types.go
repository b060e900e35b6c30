package osrs

// The wiki price API names are counterintuitive: "high" is the price at
// which an instant buy order fills, which is where a flipper SELLS; "low"
// is the instant sell fill price, which is where a flipper BUYS. The
// engine package maps high/low onto bought_price/sold_price.

// PriceInfo is one item's latest price snapshot from /latest.
// All fields are nullable: an item that has never traded on one side has
// no price and no timestamp for it.
type PriceInfo struct {
	High     *int   `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int   `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// latestResponse is the /latest envelope. Item IDs arrive as string keys.
type latestResponse struct {
	Data map[string]PriceInfo `json:"data"`
}

// ItemMapping is the static item metadata from /mapping.
type ItemMapping struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine"`
	Members  bool   `json:"members"`
	BuyLimit *int   `json:"limit"` // absent for items without a trade limit
	Value    int    `json:"value"`
	HighAlch int    `json:"highalch"`
	LowAlch  int    `json:"lowalch"`
	Icon     string `json:"icon"`
}

// Timestep selects the /timeseries sampling granularity.
type Timestep string

const (
	// TimestepFine is the finest granularity the API offers; it only
	// covers roughly the last day.
	TimestepFine Timestep = "5m"
	// TimestepCoarse is one point per day, covering about a year.
	TimestepCoarse Timestep = "24h"
)

// SeriesPoint is one /timeseries observation.
type SeriesPoint struct {
	Timestamp       int64    `json:"timestamp"` // unix seconds
	AvgHighPrice    *float64 `json:"avgHighPrice"`
	AvgLowPrice     *float64 `json:"avgLowPrice"`
	HighPriceVolume int64    `json:"highPriceVolume"`
	LowPriceVolume  int64    `json:"lowPriceVolume"`
}

// timeseriesResponse is the /timeseries envelope.
type timeseriesResponse struct {
	Data []SeriesPoint `json:"data"`
}
