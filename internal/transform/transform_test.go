package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodtruck/salesync/internal/domain"
)

func tacoOrder() *domain.Order {
	return &domain.Order{
		ID:            "O1",
		LocationID:    "L100",
		CreatedAt:     "2024-07-01T10:00:00Z",
		TotalTipMoney: &domain.Money{Amount: 150, Currency: "USD"},
		LineItems: []domain.LineItem{
			{
				UID:             "L1",
				CatalogObjectID: "C1",
				Name:            "Taco",
				Quantity:        "2",
				GrossSalesMoney: &domain.Money{Amount: 500, Currency: "USD"},
				TotalMoney:      &domain.Money{Amount: 480, Currency: "USD"},
			},
		},
	}
}

func TestRecordsSingleLineItem(t *testing.T) {
	records := Records(tacoOrder())
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Food Truck", rec.RevenueCenter)
	assert.Equal(t, "O1", rec.OrderID)
	assert.Equal(t, "2024-07-01T10:00:00Z", rec.ItemOrderTime)
	assert.Equal(t, "C1", rec.ItemNumber)
	assert.Equal(t, "Taco", rec.ItemName)
	assert.Equal(t, "L100", rec.StoreID)
	assert.Equal(t, "L1", rec.UID)

	assert.True(t, rec.ItemQuantity.Equal(decimal.NewFromInt(2)), "quantity: %s", rec.ItemQuantity)
	assert.True(t, rec.ItemGrossSales.Equal(decimal.RequireFromString("5.00")), "gross: %s", rec.ItemGrossSales)
	assert.True(t, rec.ItemNetSales.Equal(decimal.RequireFromString("4.80")), "net: %s", rec.ItemNetSales)
	assert.True(t, rec.TipAmount.Equal(decimal.RequireFromString("1.50")), "tip: %s", rec.TipAmount)
}

func TestRecordsDeterministic(t *testing.T) {
	first := Records(tacoOrder())
	second := Records(tacoOrder())
	require.Equal(t, first, second)
}

func TestRecordsNoLineItems(t *testing.T) {
	o := &domain.Order{ID: "O2", CreatedAt: "2024-07-01T11:00:00Z"}
	assert.Empty(t, Records(o))
}

func TestRecordsTipSharedPerLineItem(t *testing.T) {
	o := tacoOrder()
	o.LineItems = append(o.LineItems, domain.LineItem{
		UID:             "L2",
		CatalogObjectID: "C2",
		Name:            "Agua Fresca",
		Quantity:        "1",
		GrossSalesMoney: &domain.Money{Amount: 350, Currency: "USD"},
		TotalMoney:      &domain.Money{Amount: 350, Currency: "USD"},
	})

	records := Records(o)
	require.Len(t, records, 2)

	// The full tip repeats on every record; it is not split.
	for _, rec := range records {
		assert.True(t, rec.TipAmount.Equal(decimal.RequireFromString("1.50")),
			"tip on %s: %s", rec.UID, rec.TipAmount)
	}
}

func TestRecordsMissingFieldsDefault(t *testing.T) {
	o := &domain.Order{
		ID:         "O3",
		LocationID: "L100",
		CreatedAt:  "2024-07-02T09:30:00Z",
		LineItems: []domain.LineItem{
			{UID: "L3"},
		},
	}

	records := Records(o)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, UnknownItem, rec.ItemNumber)
	assert.Equal(t, UnknownItem, rec.ItemName)
	assert.True(t, rec.ItemQuantity.IsZero())
	assert.True(t, rec.ItemGrossSales.IsZero())
	assert.True(t, rec.ItemNetSales.IsZero())
	assert.True(t, rec.TipAmount.IsZero())
}

func TestRecordsMalformedQuantityDefaults(t *testing.T) {
	o := tacoOrder()
	o.LineItems[0].Quantity = "a few"

	records := Records(o)
	require.Len(t, records, 1)
	assert.True(t, records[0].ItemQuantity.IsZero())
}

func TestRecordsTimestampVerbatim(t *testing.T) {
	// A non-normalized timestamp must pass through untouched.
	o := tacoOrder()
	o.CreatedAt = "2024-07-01T10:00:00.123Z"

	records := Records(o)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-07-01T10:00:00.123Z", records[0].ItemOrderTime)
}
