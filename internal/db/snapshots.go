package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
)

// Snapshot describes one persisted price build.
type Snapshot struct {
	ID        int64
	CreatedAt time.Time
	ItemCount int
}

// SaveSnapshot persists a full dataset as a new snapshot and returns its
// id. Volume data, when present, rides along as a JSON column so an
// enriched dataset restores enriched.
func (d *DB) SaveSnapshot(items []engine.Item) (int64, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("refusing to save an empty snapshot")
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO snapshots (created_at, item_count) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), len(items))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_items (
		snapshot_id, item_id, name, members, buy_limit,
		bought_price, sold_price, last_bought_time, last_sold_time, volumes_json
	) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		it := &items[i]
		volumes, err := volumesJSON(it.Volumes)
		if err != nil {
			return 0, fmt.Errorf("item %d volumes: %w", it.ID, err)
		}
		_, err = stmt.Exec(
			snapID, it.ID, it.Name, it.Members, intArg(it.BuyLimit),
			intArg(it.BoughtPrice), intArg(it.SoldPrice),
			timeArg(it.LastBought), timeArg(it.LastSold), volumes,
		)
		if err != nil {
			return 0, fmt.Errorf("insert item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("saved snapshot %d (%d items)", snapID, len(items)))
	return snapID, nil
}

// LoadLatest restores the most recent snapshot. Returns a nil dataset
// without error when the database holds no snapshots yet.
func (d *DB) LoadLatest() ([]engine.Item, *Snapshot, error) {
	var (
		snap    Snapshot
		created string
	)
	err := d.sql.QueryRow(`SELECT id, created_at, item_count FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&snap.ID, &created, &snap.ItemCount)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339, created)

	items, err := d.snapshotItems(snap.ID)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("DB", fmt.Sprintf("restored snapshot %d (%d items, %s)",
		snap.ID, len(items), created))
	return items, &snap, nil
}

// Snapshots lists the most recent snapshots, newest first.
func (d *DB) Snapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.Query(`SELECT id, created_at, item_count FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			created string
		)
		if err := rows.Scan(&s.ID, &created, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) snapshotItems(snapID int64) ([]engine.Item, error) {
	rows, err := d.sql.Query(`SELECT
		item_id, name, members, buy_limit,
		bought_price, sold_price, last_bought_time, last_sold_time, volumes_json
	FROM snapshot_items WHERE snapshot_id = ? ORDER BY item_id`, snapID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot items: %w", err)
	}
	defer rows.Close()

	var items []engine.Item
	for rows.Next() {
		var (
			it                     engine.Item
			buyLimit, bought, sold sql.NullInt64
			lastBought, lastSold   sql.NullString
			volumes                sql.NullString
		)
		err := rows.Scan(
			&it.ID, &it.Name, &it.Members, &buyLimit,
			&bought, &sold, &lastBought, &lastSold, &volumes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.BuyLimit = intFromNull(buyLimit)
		it.BoughtPrice = intFromNull(bought)
		it.SoldPrice = intFromNull(sold)
		if it.LastBought, err = timeFromNull(lastBought); err != nil {
			return nil, fmt.Errorf("item %d last_bought_time: %w", it.ID, err)
		}
		if it.LastSold, err = timeFromNull(lastSold); err != nil {
			return nil, fmt.Errorf("item %d last_sold_time: %w", it.ID, err)
		}
		if volumes.Valid {
			v := &engine.ItemVolumes{}
			if err := json.Unmarshal([]byte(volumes.String), v); err != nil {
				return nil, fmt.Errorf("item %d volumes: %w", it.ID, err)
			}
			it.Volumes = v
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	engine.ComputeDerived(items)
	return items, nil
}

func volumesJSON(v *engine.ItemVolumes) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func intArg(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func timeArg(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.UTC().Format(time.RFC3339)
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func timeFromNull(n sql.NullString) (*time.Time, error) {
	if !n.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, n.String)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
