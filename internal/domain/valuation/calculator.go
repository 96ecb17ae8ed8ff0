// Package valuation turns base quantities and physical counts into money.
//
// All arithmetic keeps full decimal precision. Round is applied only when a
// total is about to be displayed.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/uom"
)

// CostBasis is the cost in effect when a value is computed.
type CostBasis struct {
	UnitCost decimal.Decimal `json:"unitCost"`
	UOM      decimal.Decimal `json:"uom"`
}

// BasisOf returns the item's current cost basis.
func BasisOf(item *catalog.StockItem) CostBasis {
	return CostBasis{UnitCost: item.UnitCost, UOM: item.UOM}
}

// Value multiplies a quantity by a rate at full precision.
func Value(qty, rate decimal.Decimal) types.Money {
	return qty.Mul(rate)
}

// Round rounds a displayed money total to two decimals, half up.
func Round(m types.Money) types.Money {
	return types.RoundMoney(m)
}

// Calculator values stock using the conversion rule of each category.
type Calculator struct {
	rules *uom.Registry
}

// NewCalculator creates a calculator over the given rule registry.
func NewCalculator(rules *uom.Registry) *Calculator {
	if rules == nil {
		rules = uom.Default()
	}
	return &Calculator{rules: rules}
}

// Rules exposes the registry the calculator values with.
func (c *Calculator) Rules() *uom.Registry {
	return c.rules
}

func (c *Calculator) strategy(cat catalog.CategoryCode, sub catalog.Subcategory, basis CostBasis) (uom.Strategy, error) {
	s, err := c.rules.For(cat, sub)
	if err != nil {
		return nil, err
	}
	if basis.UnitCost.IsNegative() {
		return nil, apperror.NewDataIntegrity("", fmt.Sprintf("unit cost cannot be negative, got %s", basis.UnitCost)).
			WithDetail("unitCost", basis.UnitCost.String())
	}
	if s.NeedsUOM() {
		if err := uom.CheckUOM(basis.UOM); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CostPerServing is unit_cost/uom, or unit_cost per box for bag-in-box.
func (c *Calculator) CostPerServing(cat catalog.CategoryCode, sub catalog.Subcategory, basis CostBasis) (types.Money, error) {
	s, err := c.strategy(cat, sub, basis)
	if err != nil {
		return decimal.Zero, err
	}
	if s.Unit() == uom.UnitBox {
		return basis.UnitCost, nil
	}
	return basis.UnitCost.Div(basis.UOM), nil
}

// CountValue values a physical count.
//
//	serving basis:   full*unit_cost + partial*unit_cost/uom
//	container basis: (full+partial)*unit_cost
func (c *Calculator) CountValue(cat catalog.CategoryCode, sub catalog.Subcategory, full, partial decimal.Decimal, basis CostBasis) (types.Money, error) {
	s, err := c.strategy(cat, sub, basis)
	if err != nil {
		return decimal.Zero, err
	}
	switch s.Basis() {
	case uom.BasisServing:
		fullValue := Value(full, basis.UnitCost)
		partialValue := partial.Mul(basis.UnitCost).Div(basis.UOM)
		return fullValue.Add(partialValue), nil
	default:
		return Value(full.Add(partial), basis.UnitCost), nil
	}
}

// QuantityValue values a base quantity such as an opening or expected figure.
// Servings are valued at qty*unit_cost/uom, boxes at qty*unit_cost.
func (c *Calculator) QuantityValue(cat catalog.CategoryCode, sub catalog.Subcategory, qty decimal.Decimal, basis CostBasis) (types.Money, error) {
	s, err := c.strategy(cat, sub, basis)
	if err != nil {
		return decimal.Zero, err
	}
	if s.Unit() == uom.UnitBox {
		return Value(qty, basis.UnitCost), nil
	}
	return qty.Mul(basis.UnitCost).Div(basis.UOM), nil
}

// Warnings returns the valuation warnings for an item priced at basis.
func Warnings(item *catalog.StockItem, basis CostBasis) apperror.Warnings {
	var ws apperror.Warnings
	if basis.UnitCost.IsZero() {
		ws.Add(apperror.NewWarning(apperror.WarnZeroUnitCost,
			"item %s has no unit cost; its stock is valued at zero", item.Label()).
			With("itemId", item.ID))
	}
	return ws
}
