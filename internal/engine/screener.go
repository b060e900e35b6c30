package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"osrs-flipper/internal/logger"
	"osrs-flipper/internal/osrs"
)

// CatalogSource supplies item metadata and the latest price snapshot.
type CatalogSource interface {
	Mapping(ctx context.Context) ([]osrs.ItemMapping, error)
	Latest(ctx context.Context) (map[int]osrs.PriceInfo, error)
}

// SeriesSource supplies per-item price/volume timeseries.
type SeriesSource interface {
	Timeseries(ctx context.Context, itemID int, step osrs.Timestep) ([]osrs.SeriesPoint, error)
}

// Screener owns the canonical dataset and runs the build → enrich →
// filter pipeline over it. It is a single-threaded pull engine: callers
// invoke the steps sequentially, and every returned view is a deep copy
// so engine state can never be mutated from outside.
type Screener struct {
	catalog CatalogSource
	series  SeriesSource

	limiter *rate.Limiter
	workers int
	jitter  func() time.Duration

	items        []Item
	volumeLoaded bool
}

// NewScreener creates a screener over the given sources. requestsPerSecond
// is the global timeseries fetch budget shared by all enrichment workers.
func NewScreener(catalog CatalogSource, series SeriesSource, requestsPerSecond float64, workers int) *Screener {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if workers <= 0 {
		workers = 2
	}
	return &Screener{
		catalog: catalog,
		series:  series,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		workers: workers,
		jitter: func() time.Duration {
			return time.Duration(100+rand.Intn(200)) * time.Millisecond
		},
	}
}

// HasData reports whether a dataset is loaded.
func (s *Screener) HasData() bool {
	return len(s.items) > 0
}

// Items returns a defensive copy of the current dataset.
func (s *Screener) Items() []Item {
	return CloneItems(s.items)
}

// VolumeLoaded reports whether volume enrichment has run on this dataset.
func (s *Screener) VolumeLoaded() bool {
	return s.volumeLoaded
}

// Load builds the dataset from the catalog source. When data is already
// present it is a no-op unless force is set. On any failure the previous
// dataset is left untouched.
func (s *Screener) Load(ctx context.Context, force bool) error {
	if s.HasData() && !force {
		logger.Info("ENGINE", "data already loaded, skipping (use force to refresh)")
		return nil
	}

	mappings, err := s.catalog.Mapping(ctx)
	if err != nil {
		return fmt.Errorf("loading item metadata: %w", err)
	}
	if len(mappings) == 0 {
		return fmt.Errorf("item metadata is empty")
	}
	latest, err := s.catalog.Latest(ctx)
	if err != nil {
		return fmt.Errorf("loading price snapshot: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("price snapshot is empty")
	}

	s.items = BuildItems(mappings, latest)
	s.volumeLoaded = false
	logger.Success("ENGINE", fmt.Sprintf("loaded %d items with price data", len(s.items)))
	return nil
}

// SetItems replaces the dataset with a deep copy of items, recomputing
// derived columns. Used when restoring from a file or local snapshot.
func (s *Screener) SetItems(items []Item) {
	s.items = CloneItems(items)
	ComputeDerived(s.items)
	s.volumeLoaded = false
	for i := range s.items {
		if s.items[i].Volumes != nil {
			s.volumeLoaded = true
			break
		}
	}
}

// Filter runs the filter pipeline over the current dataset, replaces the
// retained dataset with the result, and returns a copy of it. Callers
// that need the unfiltered dataset must capture Items() beforehand.
func (s *Screener) Filter(opts FilterOptions) []Item {
	result := ApplyFilter(s.items, opts, s.volumeLoaded, time.Now().UTC())
	logger.Info("ENGINE", fmt.Sprintf("filter kept %d of %d items", len(result), len(s.items)))
	s.items = result
	return CloneItems(result)
}

// Table renders the current dataset with the fixed display contract.
func (s *Screener) Table() string {
	return RenderTable(s.items, time.Now().UTC(), s.volumeLoaded)
}
