package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foodtruck/salesync/internal/logger"
)

// WatermarkRepo tracks the latest order timestamp already persisted. The
// value is stored explicitly in sync_state and advanced transactionally with
// each insert, but the persisted records remain the source of truth:
// Reconcile repairs the stored value from the data before each run.
//
// Watermarks are verbatim RFC3339 "Z" strings as supplied by the remote;
// with a single shared format, string comparison is time comparison.
type WatermarkRepo struct {
	db *sql.DB
}

func NewWatermarkRepo(db *sql.DB) *WatermarkRepo {
	return &WatermarkRepo{db: db}
}

// Current returns the tracked watermark. ok is false when no watermark
// exists yet (empty store, never synced); callers fall back to the
// configured epoch.
func (r *WatermarkRepo) Current() (string, bool, error) {
	var wm string
	err := r.db.QueryRow("SELECT watermark FROM sync_state WHERE id = 1").Scan(&wm)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read watermark: %w", err)
	}
	return wm, true, nil
}

// Reconcile compares the tracked watermark against the maximum
// item_order_time actually persisted and repairs forward drift (data ahead
// of the tracked value, e.g. after a crash between insert batches in an
// older schema, or manual imports). The watermark never moves backward.
// Returns the effective watermark, or "" when neither source has one.
func (r *WatermarkRepo) Reconcile() (string, error) {
	var dataMax sql.NullString
	err := r.db.QueryRow("SELECT MAX(item_order_time) FROM sales_records").Scan(&dataMax)
	if err != nil {
		return "", fmt.Errorf("max order time: %w", err)
	}

	stored, ok, err := r.Current()
	if err != nil {
		return "", err
	}

	if !dataMax.Valid {
		// No records; keep whatever is tracked (possibly nothing).
		if ok {
			return stored, nil
		}
		return "", nil
	}

	if ok && stored >= dataMax.String {
		return stored, nil
	}

	// Data is ahead of the tracked value: repair.
	if ok {
		logger.L.Warn("watermark drift repaired",
			"tracked", stored, "data_max", dataMax.String)
	}
	_, err = r.db.Exec(
		`INSERT INTO sync_state (id, watermark, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
		WHERE excluded.watermark > sync_state.watermark`,
		dataMax.String, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("repair watermark: %w", err)
	}
	return dataMax.String, nil
}
