// Package movement is the append-only log of stock events within a period.
package movement

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
)

// Type is the kind of stock event.
type Type string

const (
	TypePurchase    Type = "PURCHASE"
	TypeSale        Type = "SALE"
	TypeWaste       Type = "WASTE"
	TypeTransferIn  Type = "TRANSFER_IN"
	TypeTransferOut Type = "TRANSFER_OUT"
	TypeAdjustment  Type = "ADJUSTMENT"
)

// Types lists every movement type.
var Types = []Type{TypePurchase, TypeSale, TypeWaste, TypeTransferIn, TypeTransferOut, TypeAdjustment}

// Signed reports whether quantities of this type carry their own sign.
func (t Type) Signed() bool {
	return t == TypeAdjustment
}

// StockMovement is one immutable stock event. Quantity is in the item's base
// unit (servings, or boxes for bag-in-box).
type StockMovement struct {
	ID         id.ID           `db:"id" json:"id"`
	HotelID    id.ID           `db:"hotel_id" json:"hotelId"`
	ItemID     id.ID           `db:"item_id" json:"itemId"`
	PeriodID   id.ID           `db:"period_id" json:"periodId"`
	Type       Type            `db:"movement_type" json:"movementType"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost   decimal.Decimal `db:"unit_cost" json:"unitCost"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurredAt"`
	Note       string          `db:"note" json:"note,omitempty"`
	CreatedBy  string          `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Totals are the movement sums of one item over one period.
type Totals struct {
	Purchases    decimal.Decimal `db:"purchases" json:"purchases"`
	Sales        decimal.Decimal `db:"sales" json:"sales"`
	Waste        decimal.Decimal `db:"waste" json:"waste"`
	TransfersIn  decimal.Decimal `db:"transfers_in" json:"transfersIn"`
	TransfersOut decimal.Decimal `db:"transfers_out" json:"transfersOut"`
	Adjustments  decimal.Decimal `db:"adjustments" json:"adjustments"`
}

// Add folds one movement into the totals.
func (t *Totals) Add(m *StockMovement) {
	switch m.Type {
	case TypePurchase:
		t.Purchases = t.Purchases.Add(m.Quantity)
	case TypeSale:
		t.Sales = t.Sales.Add(m.Quantity)
	case TypeWaste:
		t.Waste = t.Waste.Add(m.Quantity)
	case TypeTransferIn:
		t.TransfersIn = t.TransfersIn.Add(m.Quantity)
	case TypeTransferOut:
		t.TransfersOut = t.TransfersOut.Add(m.Quantity)
	case TypeAdjustment:
		t.Adjustments = t.Adjustments.Add(m.Quantity)
	}
}

// Net is the change in stock the movements imply.
func (t Totals) Net() decimal.Decimal {
	return t.Purchases.
		Add(t.TransfersIn).
		Sub(t.Sales).
		Sub(t.Waste).
		Sub(t.TransfersOut).
		Add(t.Adjustments)
}

// Aggregate sums movements per item.
func Aggregate(ms []StockMovement) map[id.ID]Totals {
	out := make(map[id.ID]Totals)
	for i := range ms {
		t := out[ms[i].ItemID]
		t.Add(&ms[i])
		out[ms[i].ItemID] = t
	}
	return out
}
