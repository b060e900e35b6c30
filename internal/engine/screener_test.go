package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"osrs-flipper/internal/osrs"
)

type fakeCatalog struct {
	mappings   []osrs.ItemMapping
	latest     map[int]osrs.PriceInfo
	mappingErr error
	latestErr  error
}

func (f *fakeCatalog) Mapping(ctx context.Context) ([]osrs.ItemMapping, error) {
	return f.mappings, f.mappingErr
}

func (f *fakeCatalog) Latest(ctx context.Context) (map[int]osrs.PriceInfo, error) {
	return f.latest, f.latestErr
}

type fakeSeries struct {
	fine   map[int][]osrs.SeriesPoint
	coarse map[int][]osrs.SeriesPoint
	errs   map[int]error
}

func (f *fakeSeries) Timeseries(ctx context.Context, itemID int, step osrs.Timestep) ([]osrs.SeriesPoint, error) {
	if err, ok := f.errs[itemID]; ok {
		return nil, err
	}
	if step == osrs.TimestepFine {
		return f.fine[itemID], nil
	}
	return f.coarse[itemID], nil
}

func newTestScreener(catalog CatalogSource, series SeriesSource) *Screener {
	s := NewScreener(catalog, series, 1000, 4)
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.jitter = func() time.Duration { return 0 }
	return s
}

func fakePrices() (*fakeCatalog, *fakeSeries) {
	high1, low1 := 110, 100
	high2, low2 := 50, 48
	ts := time.Now().UTC().Unix()
	catalog := &fakeCatalog{
		mappings: []osrs.ItemMapping{
			{ID: 1, Name: "Abyssal whip", Members: true, BuyLimit: ip(70)},
			{ID: 2, Name: "Bronze dagger", BuyLimit: ip(125)},
		},
		latest: map[int]osrs.PriceInfo{
			1: {High: &high1, HighTime: &ts, Low: &low1, LowTime: &ts},
			2: {High: &high2, HighTime: &ts, Low: &low2, LowTime: &ts},
		},
	}
	now := time.Now().UTC().Unix()
	series := &fakeSeries{
		fine: map[int][]osrs.SeriesPoint{
			1: {
				{Timestamp: now - 600, AvgHighPrice: fp(110), AvgLowPrice: fp(100), HighPriceVolume: 40, LowPriceVolume: 60},
			},
		},
		coarse: map[int][]osrs.SeriesPoint{},
		errs:   map[int]error{},
	}
	return catalog, series
}

func TestScreener_Load(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)

	if s.HasData() {
		t.Fatal("fresh screener reports data")
	}
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].MarginGP != 10 || items[1].MarginGP != 2 {
		t.Errorf("margins = %d, %d, want 10, 2", items[0].MarginGP, items[1].MarginGP)
	}
	if s.VolumeLoaded() {
		t.Error("VolumeLoaded true before enrichment")
	}
}

func TestScreener_LoadSkipsWhenLoaded(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A later upstream failure must not be hit without force.
	catalog.latestErr = errors.New("api down")
	if err := s.Load(context.Background(), false); err != nil {
		t.Errorf("second Load without force errored: %v", err)
	}
	if err := s.Load(context.Background(), true); err == nil {
		t.Error("forced Load did not surface upstream failure")
	}
}

func TestScreener_LoadFailurePreservesState(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := s.Items()

	catalog.mappingErr = errors.New("timeout")
	if err := s.Load(context.Background(), true); err == nil {
		t.Fatal("forced Load with failing mapping did not error")
	}
	after := s.Items()
	if len(after) != len(before) {
		t.Errorf("dataset changed after failed load: %d vs %d items", len(after), len(before))
	}
}

func TestScreener_LoadEmptyMappingFails(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := s.Items()

	// An empty metadata fetch is upstream-unavailable: the forced
	// reload must fail and keep the prior dataset, not replace it with
	// nameless, limit-less rows.
	catalog.mappings = []osrs.ItemMapping{}
	if err := s.Load(context.Background(), true); err == nil {
		t.Fatal("forced Load with empty metadata did not error")
	}
	after := s.Items()
	if len(after) != len(before) {
		t.Fatalf("dataset changed after failed load: %d vs %d items", len(after), len(before))
	}
	if after[0].Name != before[0].Name {
		t.Errorf("prior dataset was replaced: name %q, want %q", after[0].Name, before[0].Name)
	}
}

func TestScreener_LoadEmptySnapshotFails(t *testing.T) {
	catalog, series := fakePrices()
	catalog.latest = map[int]osrs.PriceInfo{}
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err == nil {
		t.Error("empty price snapshot did not error")
	}
	if s.HasData() {
		t.Error("failed load left data behind")
	}
}

func TestScreener_LoadVolumes(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.LoadVolumes(context.Background(), nil, 0); err != nil {
		t.Fatalf("LoadVolumes: %v", err)
	}
	if !s.VolumeLoaded() {
		t.Fatal("VolumeLoaded false after enrichment")
	}

	items := s.Items()
	if items[0].Volumes == nil {
		t.Fatal("item 1 missing volumes")
	}
	w1h := items[0].Volumes.Window1h
	if w1h.BoughtVolume != 40 || w1h.SoldVolume != 60 {
		t.Errorf("1h volumes = %d/%d, want 40/60", w1h.BoughtVolume, w1h.SoldVolume)
	}
	// Flip efficiency is recomputed globally after the batch.
	if want := 10 * 50.0; items[0].FlipEfficiency != want {
		t.Errorf("flip efficiency = %v, want %v", items[0].FlipEfficiency, want)
	}
	// Item 2 has no fine series: not enriched, volumes stay nil.
	if items[1].Volumes != nil {
		t.Error("item without fine series was enriched")
	}
}

func TestScreener_LoadVolumesIsolatesFailures(t *testing.T) {
	catalog, series := fakePrices()
	series.errs[2] = errors.New("rate limited")
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.LoadVolumes(context.Background(), []int{1, 2}, 0); err != nil {
		t.Fatalf("one failing item aborted the batch: %v", err)
	}
	items := s.Items()
	if items[0].Volumes == nil {
		t.Error("healthy item not enriched")
	}
	if items[1].Volumes != nil {
		t.Error("failing item got volumes")
	}
}

func TestScreener_LoadVolumesRequiresData(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.LoadVolumes(context.Background(), nil, 0); err == nil {
		t.Error("LoadVolumes without a dataset did not error")
	}
}

func TestScreener_LoadVolumesHonorsBudget(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Budget of 1 with nil IDs enriches only the first item.
	if err := s.LoadVolumes(context.Background(), nil, 1); err != nil {
		t.Fatalf("LoadVolumes: %v", err)
	}
	items := s.Items()
	if items[0].Volumes == nil {
		t.Error("first item not enriched under budget")
	}
	if items[1].Volumes != nil {
		t.Error("budget exceeded")
	}
}

func TestScreener_FilterReplacesDataset(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := s.Filter(FilterOptions{MarginMin: ip(5)})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("filter result ids = %v, want [1]", ids(got))
	}
	// The retained dataset is the filtered one.
	if len(s.Items()) != 1 {
		t.Errorf("retained dataset has %d items, want 1", len(s.Items()))
	}
}

func TestScreener_ItemsIsACopy(t *testing.T) {
	catalog, series := fakePrices()
	s := newTestScreener(catalog, series)
	if err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	view := s.Items()
	*view[0].BoughtPrice = 1
	view[0].Name = "tampered"

	fresh := s.Items()
	if *fresh[0].BoughtPrice == 1 || fresh[0].Name == "tampered" {
		t.Error("mutating a returned view reached engine state")
	}
}

func TestScreener_SetItems(t *testing.T) {
	s := newTestScreener(&fakeCatalog{}, &fakeSeries{})
	items := testDataset()
	s.SetItems(items)

	if !s.HasData() {
		t.Fatal("SetItems left no data")
	}
	if !s.VolumeLoaded() {
		t.Error("restored items carry volumes, VolumeLoaded should be true")
	}

	// Restored without volumes: enrichment state resets.
	for i := range items {
		items[i].Volumes = nil
	}
	s.SetItems(items)
	if s.VolumeLoaded() {
		t.Error("VolumeLoaded true with no volumes in restored data")
	}

	// SetItems deep-copies: mutating the source must not reach the engine.
	*items[0].BoughtPrice = 1
	if *s.Items()[0].BoughtPrice == 1 {
		t.Error("SetItems shares pointers with its input")
	}
}

func TestScreener_TopCandidates(t *testing.T) {
	s := newTestScreener(&fakeCatalog{}, &fakeSeries{})
	s.SetItems([]Item{
		{ID: 1, BoughtPrice: ip(1000), SoldPrice: ip(700), BuyLimit: ip(10)},  // margin 300
		{ID: 2, BoughtPrice: ip(1000), SoldPrice: ip(500), BuyLimit: ip(10)},  // margin 500
		{ID: 3, BoughtPrice: ip(1000), SoldPrice: ip(950), BuyLimit: ip(10)},  // margin 50, below floor
		{ID: 4, BoughtPrice: ip(1000), SoldPrice: ip(400)},                    // no buy limit
		{ID: 5, BoughtPrice: ip(1000)},                                        // no sold price
	})

	got := s.TopCandidates(10)
	want := []int{2, 1}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("TopCandidates = %v, want %v", got, want)
	}

	if got := s.TopCandidates(1); len(got) != 1 || got[0] != 2 {
		t.Errorf("TopCandidates(1) = %v, want [2]", got)
	}
}
