package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
	"barstock/internal/domain/movement"
)

type RecordMovementRequest struct {
	ItemID     string           `json:"itemId" binding:"required,uuid"`
	PeriodID   string           `json:"periodId" binding:"required,uuid"`
	Type       movement.Type    `json:"movementType" binding:"required"`
	Quantity   *decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost   *decimal.Decimal `json:"unitCost,omitempty"`
	OccurredAt time.Time        `json:"occurredAt" binding:"required"`
	Note       string           `json:"note,omitempty" binding:"max=500"`
}

// ToInput converts the request for hotelID.
func (r *RecordMovementRequest) ToInput(hotelID id.ID) (movement.RecordInput, error) {
	itemID, err := ParseID("itemId", r.ItemID)
	if err != nil {
		return movement.RecordInput{}, err
	}
	periodID, err := ParseID("periodId", r.PeriodID)
	if err != nil {
		return movement.RecordInput{}, err
	}
	in := movement.RecordInput{
		HotelID:    hotelID,
		ItemID:     itemID,
		PeriodID:   periodID,
		Type:       r.Type,
		Quantity:   *r.Quantity,
		OccurredAt: r.OccurredAt,
		Note:       r.Note,
	}
	if r.UnitCost != nil {
		in.UnitCost = *r.UnitCost
	}
	return in, nil
}

// TotalsResponse is one item's movement sums.
type TotalsResponse struct {
	ItemID string `json:"itemId"`
	movement.Totals
	Net decimal.Decimal `json:"net"`
}

func FromTotals(m map[id.ID]movement.Totals) []TotalsResponse {
	out := make([]TotalsResponse, 0, len(m))
	for itemID, t := range m {
		out = append(out, TotalsResponse{ItemID: itemID.String(), Totals: t, Net: t.Net()})
	}
	return out
}
