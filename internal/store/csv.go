package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"osrs-flipper/internal/engine"
)

var csvHeader = []string{
	"item_id", "name", "members", "buy_limit",
	"bought_price", "sold_price", "last_bought_time", "last_sold_time",
	"margin_gp", "margin_pct", "flip_efficiency",
	"bought_volume_20m", "sold_volume_20m", "avg_bought_price_20m", "avg_sold_price_20m", "avg_margin_gp_20m",
	"bought_volume_1h", "sold_volume_1h", "avg_bought_price_1h", "avg_sold_price_1h", "avg_margin_gp_1h",
	"bought_volume_24h", "sold_volume_24h", "avg_bought_price_24h", "avg_sold_price_24h", "avg_margin_gp_24h",
	"bought_price_trend_1h", "sold_price_trend_1h",
	"bought_price_trend_24h", "sold_price_trend_24h",
	"bought_price_trend_1w", "sold_price_trend_1w",
	"bought_price_trend_1mo", "sold_price_trend_1mo",
}

func writeCSV(w io.Writer, items []engine.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range items {
		if err := cw.Write(csvRow(&items[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(it *engine.Item) []string {
	row := []string{
		strconv.Itoa(it.ID),
		it.Name,
		strconv.FormatBool(it.Members),
		intPtrCell(it.BuyLimit),
		intPtrCell(it.BoughtPrice),
		intPtrCell(it.SoldPrice),
		timeCell(it.LastBought),
		timeCell(it.LastSold),
		strconv.Itoa(it.MarginGP),
		floatCell(it.MarginPct),
		floatCell(it.FlipEfficiency),
	}
	if it.Volumes == nil {
		// Empty volume cells mean "never enriched", as opposed to an
		// enriched item whose windows held no observations.
		for i := len(row); i < len(csvHeader); i++ {
			row = append(row, "")
		}
		return row
	}
	v := it.Volumes
	for _, w := range []engine.WindowStats{v.Window20m, v.Window1h, v.Window24h} {
		row = append(row,
			strconv.FormatInt(w.BoughtVolume, 10),
			strconv.FormatInt(w.SoldVolume, 10),
			floatCell(w.AvgBoughtPrice),
			floatCell(w.AvgSoldPrice),
			floatCell(w.AvgMarginGP),
		)
	}
	row = append(row,
		string(v.BoughtTrend1h), string(v.SoldTrend1h),
		string(v.BoughtTrend24h), string(v.SoldTrend24h),
		string(v.BoughtTrend1w), string(v.SoldTrend1w),
		string(v.BoughtTrend1mo), string(v.SoldTrend1mo),
	)
	return row
}

func readCSV(r io.Reader) ([]engine.Item, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var items []engine.Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		it, err := parseRow(header, rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// parseRow maps cells by header name, so column order and extra columns
// in the file are tolerated. Empty cells stay nil/zero. Derived columns
// in the file are ignored; Load recomputes them.
func parseRow(header, rec []string) (engine.Item, error) {
	var it engine.Item

	// Volumes are allocated lazily: only rows with at least one
	// non-empty volume cell come back enriched.
	vol := func() *engine.ItemVolumes {
		if it.Volumes == nil {
			it.Volumes = &engine.ItemVolumes{}
		}
		return it.Volumes
	}

	for i, col := range header {
		if i >= len(rec) || rec[i] == "" {
			continue
		}
		cell := rec[i]
		var err error
		switch col {
		case "item_id":
			it.ID, err = strconv.Atoi(cell)
		case "name":
			it.Name = cell
		case "members":
			it.Members, err = strconv.ParseBool(cell)
		case "buy_limit":
			it.BuyLimit, err = intPtr(cell)
		case "bought_price":
			it.BoughtPrice, err = intPtr(cell)
		case "sold_price":
			it.SoldPrice, err = intPtr(cell)
		case "last_bought_time":
			it.LastBought, err = timePtr(cell)
		case "last_sold_time":
			it.LastSold, err = timePtr(cell)
		case "margin_gp", "margin_pct", "flip_efficiency":
			// recomputed after load

		case "bought_volume_20m":
			vol().Window20m.BoughtVolume, err = strconv.ParseInt(cell, 10, 64)
		case "sold_volume_20m":
			vol().Window20m.SoldVolume, err = strconv.ParseInt(cell, 10, 64)
		case "avg_bought_price_20m":
			vol().Window20m.AvgBoughtPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_sold_price_20m":
			vol().Window20m.AvgSoldPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_margin_gp_20m":
			vol().Window20m.AvgMarginGP, err = strconv.ParseFloat(cell, 64)
		case "bought_volume_1h":
			vol().Window1h.BoughtVolume, err = strconv.ParseInt(cell, 10, 64)
		case "sold_volume_1h":
			vol().Window1h.SoldVolume, err = strconv.ParseInt(cell, 10, 64)
		case "avg_bought_price_1h":
			vol().Window1h.AvgBoughtPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_sold_price_1h":
			vol().Window1h.AvgSoldPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_margin_gp_1h":
			vol().Window1h.AvgMarginGP, err = strconv.ParseFloat(cell, 64)
		case "bought_volume_24h":
			vol().Window24h.BoughtVolume, err = strconv.ParseInt(cell, 10, 64)
		case "sold_volume_24h":
			vol().Window24h.SoldVolume, err = strconv.ParseInt(cell, 10, 64)
		case "avg_bought_price_24h":
			vol().Window24h.AvgBoughtPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_sold_price_24h":
			vol().Window24h.AvgSoldPrice, err = strconv.ParseFloat(cell, 64)
		case "avg_margin_gp_24h":
			vol().Window24h.AvgMarginGP, err = strconv.ParseFloat(cell, 64)

		case "bought_price_trend_1h":
			vol().BoughtTrend1h = engine.Trend(cell)
		case "sold_price_trend_1h":
			vol().SoldTrend1h = engine.Trend(cell)
		case "bought_price_trend_24h":
			vol().BoughtTrend24h = engine.Trend(cell)
		case "sold_price_trend_24h":
			vol().SoldTrend24h = engine.Trend(cell)
		case "bought_price_trend_1w":
			vol().BoughtTrend1w = engine.Trend(cell)
		case "sold_price_trend_1w":
			vol().SoldTrend1w = engine.Trend(cell)
		case "bought_price_trend_1mo":
			vol().BoughtTrend1mo = engine.Trend(cell)
		case "sold_price_trend_1mo":
			vol().SoldTrend1mo = engine.Trend(cell)
		}
		if err != nil {
			return engine.Item{}, fmt.Errorf("column %s: %w", col, err)
		}
	}
	return it, nil
}

func intPtrCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func timeCell(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.RFC3339)
}

func floatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func intPtr(cell string) (*int, error) {
	v, err := strconv.Atoi(cell)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func timePtr(cell string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
