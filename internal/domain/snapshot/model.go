// Package snapshot holds the frozen closing stock of a period.
package snapshot

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/uom"
	"barstock/internal/domain/valuation"
)

// StockSnapshot is the closing stock of one item in one period.
// Rows are written only by period close and are unique per (hotel, period, item).
type StockSnapshot struct {
	ID          id.ID `db:"id" json:"id"`
	HotelID     id.ID `db:"hotel_id" json:"hotelId"`
	PeriodID    id.ID `db:"period_id" json:"periodId"`
	ItemID      id.ID `db:"item_id" json:"itemId"`
	StocktakeID id.ID `db:"stocktake_id" json:"stocktakeId"`

	CategoryCode catalog.CategoryCode `db:"category_code" json:"categoryCode"`
	Subcategory  catalog.Subcategory  `db:"subcategory" json:"subcategory,omitempty"`

	ClosingFullUnits    decimal.Decimal `db:"closing_full_units" json:"closingFullUnits"`
	ClosingPartialUnits decimal.Decimal `db:"closing_partial_units" json:"closingPartialUnits"`

	// Cost basis at close. Never recomputed from the item afterwards.
	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`
	UOM      decimal.Decimal `db:"uom" json:"uom"`

	ClosingStockValue decimal.Decimal `db:"closing_stock_value" json:"closingStockValue"`

	// Stale is set while the owning period is reopened.
	Stale bool `db:"stale" json:"stale"`
}

// Basis returns the cost basis frozen in the snapshot.
func (s *StockSnapshot) Basis() valuation.CostBasis {
	return valuation.CostBasis{UnitCost: s.UnitCost, UOM: s.UOM}
}

// TotalServings converts the closing count into the item's base quantity.
func (s *StockSnapshot) TotalServings(rules *uom.Registry) (decimal.Decimal, error) {
	if rules == nil {
		rules = uom.Default()
	}
	return rules.ToServings(s.CategoryCode, s.Subcategory, s.ClosingFullUnits, s.ClosingPartialUnits, s.UOM)
}

// CostPerServing is the frozen unit cost divided by the frozen uom.
func (s *StockSnapshot) CostPerServing(calc *valuation.Calculator) (decimal.Decimal, error) {
	return calc.CostPerServing(s.CategoryCode, s.Subcategory, s.Basis())
}

// SameContent reports whether two snapshots carry identical closing data.
func (s *StockSnapshot) SameContent(o *StockSnapshot) bool {
	return s.HotelID == o.HotelID &&
		s.PeriodID == o.PeriodID &&
		s.ItemID == o.ItemID &&
		s.StocktakeID == o.StocktakeID &&
		s.CategoryCode == o.CategoryCode &&
		s.Subcategory == o.Subcategory &&
		s.ClosingFullUnits.Equal(o.ClosingFullUnits) &&
		s.ClosingPartialUnits.Equal(o.ClosingPartialUnits) &&
		s.UnitCost.Equal(o.UnitCost) &&
		s.UOM.Equal(o.UOM) &&
		s.ClosingStockValue.Equal(o.ClosingStockValue) &&
		s.Stale == o.Stale
}

// TotalValue sums closing stock value at full precision.
func TotalValue(snaps []StockSnapshot) decimal.Decimal {
	total := decimal.Zero
	for i := range snaps {
		total = total.Add(snaps[i].ClosingStockValue)
	}
	return total
}

// ByItem indexes snapshots by item.
func ByItem(snaps []StockSnapshot) map[id.ID]*StockSnapshot {
	out := make(map[id.ID]*StockSnapshot, len(snaps))
	for i := range snaps {
		out[snaps[i].ItemID] = &snaps[i]
	}
	return out
}

// Archive is a copy of a period's snapshots taken before they were invalidated.
type Archive struct {
	ID         id.ID           `db:"id" json:"id"`
	HotelID    id.ID           `db:"hotel_id" json:"hotelId"`
	PeriodID   id.ID           `db:"period_id" json:"periodId"`
	Reason     string          `db:"reason" json:"reason"`
	ArchivedAt time.Time       `db:"archived_at" json:"archivedAt"`
	ArchivedBy string          `db:"archived_by" json:"archivedBy"`
	Snapshots  []StockSnapshot `db:"-" json:"snapshots"`
}
