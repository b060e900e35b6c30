package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"osrs-flipper/internal/logger"
	"osrs-flipper/internal/osrs"
)

// LoadVolumes enriches the dataset with per-window volume metrics for the
// given item IDs (nil = the first maxItems of the dataset). Fetches run
// on a bounded worker pool behind the screener's shared rate limiter,
// with a random jitter before each item so bursts stay spread out.
//
// A single item's failure is logged and skipped, never aborting the
// batch; failed or empty items keep zero volumes and flat trends. After
// the batch, flip efficiency is recomputed across the whole dataset
// since it depends on the freshly loaded 1h volumes.
func (s *Screener) LoadVolumes(ctx context.Context, itemIDs []int, maxItems int) error {
	if !s.HasData() {
		return fmt.Errorf("no data available, load data first")
	}

	if itemIDs == nil {
		n := len(s.items)
		if maxItems > 0 && maxItems < n {
			n = maxItems
		}
		itemIDs = make([]int, 0, n)
		for i := 0; i < n; i++ {
			itemIDs = append(itemIDs, s.items[i].ID)
		}
	} else if maxItems > 0 && len(itemIDs) > maxItems {
		itemIDs = itemIDs[:maxItems]
	}

	logger.Info("ENGINE", fmt.Sprintf("fetching volume data for %d items", len(itemIDs)))

	var (
		mu      sync.Mutex
		volumes = make(map[int]*ItemVolumes, len(itemIDs))
	)

	g := &errgroup.Group{}
	g.SetLimit(s.workers)
	for _, id := range itemIDs {
		id := id
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				logger.Warn("ENGINE", fmt.Sprintf("item %d: %v", id, err))
				return nil
			}
			time.Sleep(s.jitter())

			v, err := s.fetchItemVolumes(ctx, id)
			if err != nil {
				logger.Warn("ENGINE", fmt.Sprintf("item %d volume fetch failed: %v", id, err))
				return nil
			}
			if v == nil {
				logger.Debug("ENGINE", fmt.Sprintf("item %d: no fine timeseries data", id))
				return nil
			}

			mu.Lock()
			volumes[id] = v
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are logged and skipped so
	// one bad item cannot abort the batch.
	_ = g.Wait()

	// Enrichment has run: from here on, missing volumes mean "no data
	// found", and volume filters treat them as zero.
	s.volumeLoaded = true
	for i := range s.items {
		if v, ok := volumes[s.items[i].ID]; ok {
			s.items[i].Volumes = v
		}
	}
	ComputeDerived(s.items)

	logger.Success("ENGINE", fmt.Sprintf("enriched %d/%d items with volume data", len(volumes), len(itemIDs)))
	return nil
}

// fetchItemVolumes pulls both granularities for one item and aggregates
// them. A coarse fetch failure only costs the week/month trends, so it
// degrades to an empty coarse series instead of failing the item.
func (s *Screener) fetchItemVolumes(ctx context.Context, itemID int) (*ItemVolumes, error) {
	fine, err := s.series.Timeseries(ctx, itemID, osrs.TimestepFine)
	if err != nil {
		return nil, err
	}

	coarse, err := s.series.Timeseries(ctx, itemID, osrs.TimestepCoarse)
	if err != nil {
		logger.Debug("ENGINE", fmt.Sprintf("item %d: coarse timeseries unavailable: %v", itemID, err))
		coarse = nil
	}

	return WindowMetrics(fine, coarse, time.Now().UTC()), nil
}

// TopCandidates returns up to n item IDs worth enriching first: items
// with both prices, a margin above 100 gp and a known buy limit, ranked
// by margin descending.
func (s *Screener) TopCandidates(n int) []int {
	type candidate struct {
		id     int
		margin int
	}
	var cands []candidate
	for i := range s.items {
		it := &s.items[i]
		if it.HasPrices() && it.MarginGP > 100 && it.BuyLimit != nil {
			cands = append(cands, candidate{id: it.ID, margin: it.MarginGP})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].margin > cands[j].margin })

	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	ids := make([]int, len(cands))
	for i, c := range cands {
		ids[i] = c.id
	}
	return ids
}
