package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foodtruck/salesync/internal/domain"
)

// SalesRepo persists flattened sales records with idempotent inserts on the
// (uid, item_order_time) natural key.
type SalesRepo struct {
	db *sql.DB
}

func NewSalesRepo(db *sql.DB) *SalesRepo {
	return &SalesRepo{db: db}
}

// Exists reports whether a record with the given natural key is already
// persisted.
func (r *SalesRepo) Exists(uid, itemOrderTime string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM sales_records WHERE uid = ? AND item_order_time = ?)",
		uid, itemOrderTime,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return exists, nil
}

// InsertRecord performs the check-then-insert for one record as a single
// transaction, committed immediately so partial sync progress stays durable.
// The tracked watermark is advanced in the same transaction. Returns false
// when a record with the same (uid, item_order_time) already exists; a
// duplicate is a silent skip, not an error.
func (r *SalesRepo) InsertRecord(rec *domain.SalesRecord) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM sales_records WHERE uid = ? AND item_order_time = ?)",
		rec.UID, rec.ItemOrderTime,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return false, nil
	}

	_, err = tx.Exec(
		`INSERT INTO sales_records
		(uid, item_order_time, revenue_center_desc, order_id, item_number,
		 item_name, item_quantity, item_gross_sales, item_net_sales,
		 tip_amount, store_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.UID, rec.ItemOrderTime, rec.RevenueCenter, rec.OrderID,
		rec.ItemNumber, rec.ItemName, rec.ItemQuantity.String(),
		rec.ItemGrossSales.String(), rec.ItemNetSales.String(),
		rec.TipAmount.String(), rec.StoreID,
	)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	if err := advanceWatermarkTx(tx, rec.ItemOrderTime); err != nil {
		return false, fmt.Errorf("advance watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Count returns the number of persisted records.
func (r *SalesRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sales_records").Scan(&count)
	return count, err
}

// SalesFilter narrows and pages a record listing. From and To compare
// against the verbatim item_order_time string; with the API's uniform
// RFC3339 "Z" format, string order is chronological order.
type SalesFilter struct {
	StoreID string
	OrderID string
	From    string
	To      string
	Page    int
	Limit   int
}

// List returns matching records plus the unpaged total.
func (r *SalesRepo) List(f SalesFilter) ([]domain.SalesRecord, int, error) {
	where, args := buildSalesWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM sales_records" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := `SELECT uid, item_order_time, revenue_center_desc, order_id,
		item_number, item_name, item_quantity, item_gross_sales,
		item_net_sales, tip_amount, store_id
		FROM sales_records` + where +
		" ORDER BY item_order_time DESC, uid LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []domain.SalesRecord
	for rows.Next() {
		rec, err := scanSalesRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

// StoreSummary aggregates sales for one location.
type StoreSummary struct {
	StoreID    string          `json:"store_id"`
	Records    int             `json:"records"`
	Orders     int             `json:"orders"`
	GrossSales decimal.Decimal `json:"gross_sales"`
	NetSales   decimal.Decimal `json:"net_sales"`
}

// Summary holds aggregate sales statistics across the whole store.
type Summary struct {
	TotalRecords int             `json:"total_records"`
	TotalOrders  int             `json:"total_orders"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	NetSales     decimal.Decimal `json:"net_sales"`
	ByStore      []StoreSummary  `json:"by_store"`
}

// GetSummary computes aggregate totals plus a per-location breakdown.
func (r *SalesRepo) GetSummary() (*Summary, error) {
	s := &Summary{GrossSales: decimal.Zero, NetSales: decimal.Zero}

	var gross, net float64
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT order_id),
			COALESCE(SUM(item_gross_sales), 0),
			COALESCE(SUM(item_net_sales), 0)
		FROM sales_records
	`).Scan(&s.TotalRecords, &s.TotalOrders, &gross, &net)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	s.GrossSales = decimal.NewFromFloat(gross).Round(2)
	s.NetSales = decimal.NewFromFloat(net).Round(2)

	rows, err := r.db.Query(`
		SELECT store_id,
			COUNT(*),
			COUNT(DISTINCT order_id),
			COALESCE(SUM(item_gross_sales), 0),
			COALESCE(SUM(item_net_sales), 0)
		FROM sales_records GROUP BY store_id ORDER BY store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("summary by store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ss StoreSummary
		var g, n float64
		if err := rows.Scan(&ss.StoreID, &ss.Records, &ss.Orders, &g, &n); err != nil {
			return nil, fmt.Errorf("scan store summary: %w", err)
		}
		ss.GrossSales = decimal.NewFromFloat(g).Round(2)
		ss.NetSales = decimal.NewFromFloat(n).Round(2)
		s.ByStore = append(s.ByStore, ss)
	}
	return s, rows.Err()
}

// --- helpers ---

func buildSalesWhere(f SalesFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.StoreID != "" {
		clauses = append(clauses, "store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.OrderID != "" {
		clauses = append(clauses, "order_id = ?")
		args = append(args, f.OrderID)
	}
	if f.From != "" {
		clauses = append(clauses, "item_order_time >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "item_order_time < ?")
		args = append(args, f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanSalesRecord(rows *sql.Rows) (*domain.SalesRecord, error) {
	var rec domain.SalesRecord
	var quantity, gross, net, tip string

	err := rows.Scan(
		&rec.UID, &rec.ItemOrderTime, &rec.RevenueCenter, &rec.OrderID,
		&rec.ItemNumber, &rec.ItemName, &quantity, &gross, &net, &tip,
		&rec.StoreID,
	)
	if err != nil {
		return nil, err
	}

	if rec.ItemQuantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("quantity %q: %w", quantity, err)
	}
	if rec.ItemGrossSales, err = decimal.NewFromString(gross); err != nil {
		return nil, fmt.Errorf("gross %q: %w", gross, err)
	}
	if rec.ItemNetSales, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("net %q: %w", net, err)
	}
	if rec.TipAmount, err = decimal.NewFromString(tip); err != nil {
		return nil, fmt.Errorf("tip %q: %w", tip, err)
	}
	return &rec, nil
}

// advanceWatermarkTx moves the tracked watermark forward to ts within an
// open transaction. A lower or equal ts leaves the row untouched, so the
// watermark never moves backward.
func advanceWatermarkTx(tx *sql.Tx, ts string) error {
	_, err := tx.Exec(
		`INSERT INTO sync_state (id, watermark, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
		WHERE excluded.watermark > sync_state.watermark`,
		ts, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
