package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store bundles the repositories over one database handle. The sync engine
// opens its own Store per run and closes it on every exit path; the API
// layer keeps a long-lived one for reads.
type Store struct {
	db *sql.DB

	Sales      *SalesRepo
	Watermarks *WatermarkRepo
}

// Open opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{
		db:         db,
		Sales:      NewSalesRepo(db),
		Watermarks: NewWatermarkRepo(db),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sales_records (
			uid TEXT NOT NULL,
			item_order_time TEXT NOT NULL,
			revenue_center_desc TEXT NOT NULL,
			order_id TEXT NOT NULL,
			item_number TEXT NOT NULL,
			item_name TEXT NOT NULL,
			item_quantity TEXT NOT NULL,
			item_gross_sales TEXT NOT NULL,
			item_net_sales TEXT NOT NULL,
			tip_amount TEXT NOT NULL,
			store_id TEXT NOT NULL,
			PRIMARY KEY (uid, item_order_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_records_store ON sales_records(store_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_records_order_time ON sales_records(item_order_time)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_records_order_id ON sales_records(order_id)`,

		// Single-row table holding the tracked watermark; reconciled against
		// MAX(item_order_time) at the start of each run.
		`CREATE TABLE IF NOT EXISTS sync_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			watermark TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
