package domain

import "github.com/shopspring/decimal"

// SalesRecord is one flattened line item of one order: the unit of storage.
// Monetary fields are in decimal currency units (already divided out of the
// API's minor units). Records are written once and never updated or deleted.
type SalesRecord struct {
	RevenueCenter  string          `json:"revenue_center_desc"`
	OrderID        string          `json:"order_id"`
	ItemOrderTime  string          `json:"item_order_time"`
	ItemNumber     string          `json:"item_number"`
	ItemName       string          `json:"item_name"`
	ItemQuantity   decimal.Decimal `json:"item_quantity"`
	ItemGrossSales decimal.Decimal `json:"item_gross_sales"`
	ItemNetSales   decimal.Decimal `json:"item_net_sales"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	StoreID        string          `json:"store_id"`
	UID            string          `json:"uid"`
}

// RecordKey is the natural key of a SalesRecord. At most one record exists
// per key; the sink rejects duplicate inserts on it.
type RecordKey struct {
	UID           string `json:"uid"`
	ItemOrderTime string `json:"item_order_time"`
}

func (r *SalesRecord) Key() RecordKey {
	return RecordKey{UID: r.UID, ItemOrderTime: r.ItemOrderTime}
}
