package movement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"barstock/internal/core/id"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregate(t *testing.T) {
	lager, cola := id.New(), id.New()

	ms := []StockMovement{
		{ItemID: lager, Type: TypePurchase, Quantity: d("88")},
		{ItemID: lager, Type: TypePurchase, Quantity: d("88")},
		{ItemID: lager, Type: TypeSale, Quantity: d("120.5")},
		{ItemID: lager, Type: TypeWaste, Quantity: d("2")},
		{ItemID: lager, Type: TypeTransferIn, Quantity: d("10")},
		{ItemID: lager, Type: TypeTransferOut, Quantity: d("4")},
		{ItemID: lager, Type: TypeAdjustment, Quantity: d("-1.5")},
		{ItemID: cola, Type: TypePurchase, Quantity: d("24")},
	}

	totals := Aggregate(ms)
	assert.Len(t, totals, 2)

	l := totals[lager]
	assert.True(t, l.Purchases.Equal(d("176")))
	assert.True(t, l.Sales.Equal(d("120.5")))
	assert.True(t, l.Adjustments.Equal(d("-1.5")))
	// 176 + 10 - 120.5 - 2 - 4 - 1.5
	assert.True(t, l.Net().Equal(d("58")))

	assert.True(t, totals[cola].Net().Equal(d("24")))
}

func TestSignedTypes(t *testing.T) {
	for _, typ := range Types {
		assert.Equal(t, typ == TypeAdjustment, typ.Signed(), typ)
	}
}
