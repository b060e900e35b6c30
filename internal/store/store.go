// Package store persists the flip dataset to interchange formats and
// restores it. Derived columns are recomputed on every load so a file
// written before enrichment, or by an older build, still loads into a
// consistent dataset.
package store

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"

	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatGob  Format = "gob"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatGob:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want csv, json or gob)", s)
	}
}

// Save writes the dataset to path in the given format.
func Save(items []engine.Item, path string, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = writeCSV(f, items)
	case FormatJSON:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(items)
	case FormatGob:
		err = gob.NewEncoder(f).Encode(items)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	logger.Success("STORE", fmt.Sprintf("saved %d items to %s", len(items), path))
	return nil
}

// Load reads a dataset from path. Timestamps are normalized to UTC and
// derived columns recomputed before the dataset is returned.
func Load(path string, format Format) ([]engine.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var items []engine.Item
	switch format {
	case FormatCSV:
		items, err = readCSV(f)
	case FormatJSON:
		err = json.NewDecoder(f).Decode(&items)
	case FormatGob:
		err = gob.NewDecoder(f).Decode(&items)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	normalizeTimes(items)
	engine.ComputeDerived(items)
	logger.Info("STORE", fmt.Sprintf("loaded %d items from %s", len(items), path))
	return items, nil
}

func normalizeTimes(items []engine.Item) {
	for i := range items {
		if items[i].LastBought != nil {
			t := items[i].LastBought.UTC()
			items[i].LastBought = &t
		}
		if items[i].LastSold != nil {
			t := items[i].LastSold.UTC()
			items[i].LastSold = &t
		}
	}
}
