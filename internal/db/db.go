package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"osrs-flipper/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

func defaultPath() string {
	// Prefer working directory so the DB is stable across go run / go build.
	// Fall back to executable directory for deployed builds.
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "flipper.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "flipper.db")
}

// Open opens (or creates) the SQLite database at path and runs
// migrations. An empty path uses the default location.
func Open(path string) (*DB, error) {
	if path == "" {
		path = defaultPath()
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS snapshots (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TEXT NOT NULL,
				item_count INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);

			CREATE TABLE IF NOT EXISTS snapshot_items (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				snapshot_id      INTEGER NOT NULL REFERENCES snapshots(id),
				item_id          INTEGER NOT NULL,
				name             TEXT NOT NULL,
				members          INTEGER NOT NULL DEFAULT 0,
				buy_limit        INTEGER,
				bought_price     INTEGER,
				sold_price       INTEGER,
				last_bought_time TEXT,
				last_sold_time   TEXT,
				volumes_json     TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_snapshot_items_snap ON snapshot_items(snapshot_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "applied migration v1")
	}

	return nil
}
