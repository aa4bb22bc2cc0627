package transform

import (
	"github.com/shopspring/decimal"

	"github.com/foodtruck/salesync/internal/domain"
)

// RevenueCenter is the constant classification tag stamped on every record
// produced by this ingestion source.
const RevenueCenter = "Food Truck"

// UnknownItem marks a line item whose catalog id or name is absent in the
// source. An explicit sentinel, so an absence never leaks into storage as a
// formatted nil.
const UnknownItem = "unknown"

// Records flattens one order into one SalesRecord per line item. It is pure:
// deterministic, no I/O, and total over any well-formed order — missing
// optional fields default rather than fail. An order without line items
// yields nothing.
//
// The order's tip is attributed in full to every record produced from it,
// deliberately un-apportioned. The creation timestamp is copied through
// verbatim.
func Records(o *domain.Order) []domain.SalesRecord {
	if len(o.LineItems) == 0 {
		return nil
	}

	tip := minorToDecimal(o.TotalTipMoney)

	records := make([]domain.SalesRecord, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		records = append(records, domain.SalesRecord{
			RevenueCenter:  RevenueCenter,
			OrderID:        o.ID,
			ItemOrderTime:  o.CreatedAt,
			ItemNumber:     orUnknown(li.CatalogObjectID),
			ItemName:       orUnknown(li.Name),
			ItemQuantity:   parseQuantity(li.Quantity),
			ItemGrossSales: minorToDecimal(li.GrossSalesMoney),
			ItemNetSales:   minorToDecimal(li.TotalMoney),
			TipAmount:      tip,
			StoreID:        o.LocationID,
			UID:            li.UID,
		})
	}
	return records
}

// minorToDecimal converts minor currency units to decimal currency units
// (cents -> dollars), exactly. Absent amounts are zero.
func minorToDecimal(m *domain.Money) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return decimal.New(m.Amount, -2)
}

// parseQuantity parses Square's decimal-string quantity. Absent or
// malformed quantities default to zero.
func parseQuantity(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return q
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownItem
	}
	return s
}
