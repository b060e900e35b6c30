package store

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"osrs-flipper/internal/engine"
)

func ip(v int) *int { return &v }

func sampleItems() []engine.Item {
	bought := time.Unix(1700000000, 0).UTC()
	sold := time.Unix(1700003600, 0).UTC()
	items := []engine.Item{
		{
			ID:          4151,
			Name:        "Abyssal whip",
			Members:     true,
			BuyLimit:    ip(70),
			BoughtPrice: ip(1520000),
			SoldPrice:   ip(1500000),
			LastBought:  &bought,
			LastSold:    &sold,
			Volumes: &engine.ItemVolumes{
				Window20m: engine.WindowStats{BoughtVolume: 12, SoldVolume: 9, AvgBoughtPrice: 1519000, AvgSoldPrice: 1501000, AvgMarginGP: 18000},
				Window1h:  engine.WindowStats{BoughtVolume: 40, SoldVolume: 60, AvgBoughtPrice: 1518500.5, AvgSoldPrice: 1500200, AvgMarginGP: 18300.5},
				Window24h: engine.WindowStats{BoughtVolume: 900, SoldVolume: 800},

				BoughtTrend1h:  engine.TrendIncreasing,
				SoldTrend1h:    engine.TrendFlat,
				BoughtTrend24h: engine.TrendDecreasing,
				SoldTrend24h:   engine.TrendFlat,
				BoughtTrend1w:  engine.TrendFlat,
				SoldTrend1w:    engine.TrendFlat,
				BoughtTrend1mo: engine.TrendIncreasing,
				SoldTrend1mo:   engine.TrendFlat,
			},
		},
		{
			ID:      1337,
			Name:    "Unpriced relic",
			Members: false,
			// no prices, no buy limit, no timestamps, never enriched
		},
	}
	engine.ComputeDerived(items)
	return items
}

func TestRoundTrip_AllFormats(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON, FormatGob} {
		t.Run(string(format), func(t *testing.T) {
			items := sampleItems()
			path := filepath.Join(t.TempDir(), "flips."+string(format))

			if err := Save(items, path, format); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path, format)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, items) {
				t.Errorf("round trip changed data\n got: %+v\nwant: %+v", got, items)
			}
		})
	}
}

func TestLoad_RecomputesDerived(t *testing.T) {
	items := sampleItems()
	items[0].MarginGP = -999
	items[0].MarginPct = -999
	items[0].FlipEfficiency = -999
	path := filepath.Join(t.TempDir(), "flips.json")

	if err := Save(items, path, FormatJSON); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path, FormatJSON)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].MarginGP != 20000 {
		t.Errorf("margin_gp = %d, want 20000 (recomputed)", got[0].MarginGP)
	}
	if got[0].FlipEfficiency != 20000*50.0 {
		t.Errorf("flip_efficiency = %v, want %v", got[0].FlipEfficiency, 20000*50.0)
	}
}

func TestLoad_TimesAreUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	ts := time.Date(2024, 5, 1, 15, 30, 0, 0, loc)
	items := []engine.Item{{ID: 1, Name: "x", BoughtPrice: ip(10), SoldPrice: ip(9), LastBought: &ts}}
	engine.ComputeDerived(items)

	for _, format := range []Format{FormatCSV, FormatJSON} {
		path := filepath.Join(t.TempDir(), "flips."+string(format))
		if err := Save(items, path, format); err != nil {
			t.Fatalf("%s Save: %v", format, err)
		}
		got, err := Load(path, format)
		if err != nil {
			t.Fatalf("%s Load: %v", format, err)
		}
		lb := got[0].LastBought
		if lb == nil {
			t.Fatalf("%s: timestamp lost", format)
		}
		if lb.Location() != time.UTC {
			t.Errorf("%s: location = %v, want UTC", format, lb.Location())
		}
		if !lb.Equal(ts) {
			t.Errorf("%s: time = %v, want %v", format, lb, ts)
		}
	}
}

func TestCSV_NeverEnrichedStaysNil(t *testing.T) {
	items := sampleItems()
	path := filepath.Join(t.TempDir(), "flips.csv")
	if err := Save(items, path, FormatCSV); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path, FormatCSV)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[1].Volumes != nil {
		t.Error("item that was never enriched came back with volumes")
	}
	if got[0].Volumes == nil {
		t.Error("enriched item lost its volumes")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), FormatJSON); err == nil {
		t.Error("loading a missing file did not error")
	}
}

func TestLoad_MalformedContent(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		format  Format
		content string
	}{
		{FormatJSON, "{not json"},
		{FormatCSV, "item_id,name\nnot-a-number,x"},
		{FormatGob, "garbage"},
	} {
		path := filepath.Join(dir, "bad."+string(tc.format))
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, tc.format); err == nil {
			t.Errorf("%s: malformed content did not error", tc.format)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"csv", "json", "gob"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted an unsupported format")
	}
}

func TestSaveXLSX(t *testing.T) {
	items := sampleItems()
	path := filepath.Join(t.TempDir(), "flips.xlsx")
	if err := SaveXLSX(items, path); err != nil {
		t.Fatalf("SaveXLSX: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("exported workbook is empty")
	}
}

func TestCSV_HeaderContract(t *testing.T) {
	items := sampleItems()
	path := filepath.Join(t.TempDir(), "flips.csv")
	if err := Save(items, path, FormatCSV); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	first := strings.SplitN(string(raw), "\n", 2)[0]
	if got, want := first, strings.Join(csvHeader, ","); got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}
