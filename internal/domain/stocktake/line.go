package stocktake

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/valuation"
)

// OpeningSource records where a line's opening quantity came from.
type OpeningSource string

const (
	OpeningFromSnapshot OpeningSource = "snapshot"
	OpeningNone         OpeningSource = "none"
)

// Line is one item of a stocktake. Expected, counted and variance figures are
// always derived; there is nothing to set them with.
type Line struct {
	ID          id.ID `db:"id" json:"id"`
	StocktakeID id.ID `db:"stocktake_id" json:"stocktakeId"`
	ItemID      id.ID `db:"item_id" json:"itemId"`
	LineNo      int   `db:"line_no" json:"lineNo"`

	ItemName     string               `db:"item_name" json:"itemName"`
	CategoryCode catalog.CategoryCode `db:"category_code" json:"categoryCode"`
	Subcategory  catalog.Subcategory  `db:"subcategory" json:"subcategory,omitempty"`

	OpeningQty    decimal.Decimal `db:"opening_qty" json:"openingQty"`
	OpeningSource OpeningSource   `db:"opening_source" json:"openingSource"`

	Purchases    decimal.Decimal `db:"purchases" json:"purchases"`
	Sales        decimal.Decimal `db:"sales" json:"sales"`
	Waste        decimal.Decimal `db:"waste" json:"waste"`
	TransfersIn  decimal.Decimal `db:"transfers_in" json:"transfersIn"`
	TransfersOut decimal.Decimal `db:"transfers_out" json:"transfersOut"`
	Adjustments  decimal.Decimal `db:"adjustments" json:"adjustments"`

	CountedFullUnits    decimal.Decimal `db:"counted_full_units" json:"countedFullUnits"`
	CountedPartialUnits decimal.Decimal `db:"counted_partial_units" json:"countedPartialUnits"`
	Counted             bool            `db:"counted" json:"counted"`
	CountedAt           *time.Time      `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy           *string         `db:"counted_by" json:"countedBy,omitempty"`

	// Cost basis captured when the line was created and again at each count.
	ValuationUnitCost decimal.Decimal `db:"valuation_unit_cost" json:"valuationUnitCost"`
	ValuationUOM      decimal.Decimal `db:"valuation_uom" json:"valuationUom"`
}

// NewLine creates an uncounted line for item.
func NewLine(stocktakeID id.ID, lineNo int, item *catalog.StockItem) Line {
	return Line{
		ID:                  id.New(),
		StocktakeID:         stocktakeID,
		ItemID:              item.ID,
		LineNo:              lineNo,
		ItemName:            item.Name,
		CategoryCode:        item.CategoryCode,
		Subcategory:         item.Subcategory.Normalize(),
		OpeningQty:          decimal.Zero,
		OpeningSource:       OpeningNone,
		Purchases:           decimal.Zero,
		Sales:               decimal.Zero,
		Waste:               decimal.Zero,
		TransfersIn:         decimal.Zero,
		TransfersOut:        decimal.Zero,
		Adjustments:         decimal.Zero,
		CountedFullUnits:    decimal.Zero,
		CountedPartialUnits: decimal.Zero,
		ValuationUnitCost:   item.UnitCost,
		ValuationUOM:        item.UOM,
	}
}

// Basis is the line's valuation cost basis.
func (l *Line) Basis() valuation.CostBasis {
	return valuation.CostBasis{UnitCost: l.ValuationUnitCost, UOM: l.ValuationUOM}
}

// ApplyMovements replaces the movement totals.
func (l *Line) ApplyMovements(t movement.Totals) {
	l.Purchases = t.Purchases
	l.Sales = t.Sales
	l.Waste = t.Waste
	l.TransfersIn = t.TransfersIn
	l.TransfersOut = t.TransfersOut
	l.Adjustments = t.Adjustments
}

// Movements returns the line's movement totals.
func (l *Line) Movements() movement.Totals {
	return movement.Totals{
		Purchases:    l.Purchases,
		Sales:        l.Sales,
		Waste:        l.Waste,
		TransfersIn:  l.TransfersIn,
		TransfersOut: l.TransfersOut,
		Adjustments:  l.Adjustments,
	}
}

// SetOpening sets the opening quantity and where it came from.
func (l *Line) SetOpening(qty decimal.Decimal, src OpeningSource) {
	l.OpeningQty = qty
	l.OpeningSource = src
}

// SetCount records a validated physical count and the cost basis in effect.
func (l *Line) SetCount(full, partial decimal.Decimal, basis valuation.CostBasis, at time.Time, by string) {
	at = at.UTC()
	l.CountedFullUnits = full
	l.CountedPartialUnits = partial
	l.Counted = true
	l.CountedAt = &at
	l.CountedBy = &by
	l.ValuationUnitCost = basis.UnitCost
	l.ValuationUOM = basis.UOM
}

// ExpectedQty = opening + purchases + transfers in - sales - waste - transfers out + adjustments.
func (l *Line) ExpectedQty() decimal.Decimal {
	return l.OpeningQty.Add(l.Movements().Net())
}

// CountedQty converts the physical count into the base quantity.
func (l *Line) CountedQty(calc *valuation.Calculator) (decimal.Decimal, error) {
	return calc.Rules().ToServings(l.CategoryCode, l.Subcategory, l.CountedFullUnits, l.CountedPartialUnits, l.ValuationUOM)
}

// VarianceQty is counted minus expected.
func (l *Line) VarianceQty(calc *valuation.Calculator) (decimal.Decimal, error) {
	counted, err := l.CountedQty(calc)
	if err != nil {
		return decimal.Zero, err
	}
	return counted.Sub(l.ExpectedQty()), nil
}

// OpeningValue values the opening quantity at the line's basis.
func (l *Line) OpeningValue(calc *valuation.Calculator) (decimal.Decimal, error) {
	return calc.QuantityValue(l.CategoryCode, l.Subcategory, l.OpeningQty, l.Basis())
}

// ExpectedValue values the expected quantity at the line's basis.
func (l *Line) ExpectedValue(calc *valuation.Calculator) (decimal.Decimal, error) {
	return calc.QuantityValue(l.CategoryCode, l.Subcategory, l.ExpectedQty(), l.Basis())
}

// CountedValue values the physical count.
func (l *Line) CountedValue(calc *valuation.Calculator) (decimal.Decimal, error) {
	return calc.CountValue(l.CategoryCode, l.Subcategory, l.CountedFullUnits, l.CountedPartialUnits, l.Basis())
}

// VarianceValue is counted value minus expected value.
func (l *Line) VarianceValue(calc *valuation.Calculator) (decimal.Decimal, error) {
	counted, err := l.CountedValue(calc)
	if err != nil {
		return decimal.Zero, err
	}
	expected, err := l.ExpectedValue(calc)
	if err != nil {
		return decimal.Zero, err
	}
	return counted.Sub(expected), nil
}

// StockValue is the value reported as stock on hand. It is the counted value.
func (l *Line) StockValue(calc *valuation.Calculator) (decimal.Decimal, error) {
	return l.CountedValue(calc)
}

// Figures are every derived number of a line at full precision.
type Figures struct {
	OpeningQty    decimal.Decimal `json:"openingQty"`
	ExpectedQty   decimal.Decimal `json:"expectedQty"`
	CountedQty    decimal.Decimal `json:"countedQty"`
	VarianceQty   decimal.Decimal `json:"varianceQty"`
	OpeningValue  decimal.Decimal `json:"openingValue"`
	ExpectedValue decimal.Decimal `json:"expectedValue"`
	CountedValue  decimal.Decimal `json:"countedValue"`
	VarianceValue decimal.Decimal `json:"varianceValue"`
}

// Rounded returns a display copy: quantities and money to two places.
func (f Figures) Rounded() Figures {
	q, m := types.RoundQty, types.RoundMoney
	f.OpeningQty, f.ExpectedQty, f.CountedQty, f.VarianceQty = q(f.OpeningQty), q(f.ExpectedQty), q(f.CountedQty), q(f.VarianceQty)
	f.OpeningValue, f.ExpectedValue = m(f.OpeningValue), m(f.ExpectedValue)
	f.CountedValue, f.VarianceValue = m(f.CountedValue), m(f.VarianceValue)
	return f
}

// Figures computes the derived numbers in one pass.
func (l *Line) Figures(calc *valuation.Calculator) (Figures, error) {
	var f Figures
	var err error

	f.OpeningQty = l.OpeningQty
	f.ExpectedQty = l.ExpectedQty()
	if f.CountedQty, err = l.CountedQty(calc); err != nil {
		return Figures{}, err
	}
	f.VarianceQty = f.CountedQty.Sub(f.ExpectedQty)

	if f.OpeningValue, err = l.OpeningValue(calc); err != nil {
		return Figures{}, err
	}
	if f.ExpectedValue, err = l.ExpectedValue(calc); err != nil {
		return Figures{}, err
	}
	if f.CountedValue, err = l.CountedValue(calc); err != nil {
		return Figures{}, err
	}
	f.VarianceValue = f.CountedValue.Sub(f.ExpectedValue)
	return f, nil
}
