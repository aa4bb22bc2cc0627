package domain

// Money is a monetary amount in minor currency units (cents), as returned
// by the Square API.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Location is a point-of-sale site known to the remote API. Locations are
// fetched fresh on every sync run and never persisted.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// LineItem is one sold item within an Order. The uid is unique within the
// remote system but only (uid, order creation time) is unique over time.
type LineItem struct {
	UID             string `json:"uid"`
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Quantity        string `json:"quantity,omitempty"`
	GrossSalesMoney *Money `json:"gross_sales_money,omitempty"`
	TotalMoney      *Money `json:"total_money,omitempty"`
}

// Order is a remote sales order. CreatedAt is kept as the verbatim string
// the API returned; it is never reparsed or reformatted on its way into
// storage.
type Order struct {
	ID            string     `json:"id"`
	LocationID    string     `json:"location_id"`
	CreatedAt     string     `json:"created_at"`
	TotalTipMoney *Money     `json:"total_tip_money,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
}
