package uom

import (
	"fmt"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/domain/catalog"
)

// DefaultServingML is the syrup serving size.
var DefaultServingML = decimal.NewFromInt(35)

type key struct {
	category    catalog.CategoryCode
	subcategory catalog.Subcategory
}

// Registry selects the Strategy for a (category, subcategory) pair.
//
// Lookup order: exact pair, then the subcategory on its own (BIB applies to
// any category), then the category default.
type Registry struct {
	strategies map[key]Strategy
	syrup      SyrupBottle
}

// Option configures a Registry.
type Option func(*Registry)

// WithServingML overrides the syrup serving size.
func WithServingML(ml decimal.Decimal) Option {
	return func(r *Registry) {
		r.syrup.ServingML = ml
	}
}

// NewRegistry builds the standard rule table.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		strategies: make(map[key]Strategy),
		syrup:      SyrupBottle{ServingML: DefaultServingML},
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, c := range []catalog.CategoryCode{catalog.CategoryDraught, catalog.CategoryBottled, catalog.CategoryMinerals} {
		r.Register(c, catalog.SubcategoryNone, Servings{})
	}
	r.Register(catalog.CategorySpirits, catalog.SubcategoryNone, FractionalBottle{})
	r.Register(catalog.CategoryWine, catalog.SubcategoryNone, FractionalBottle{})

	r.Register("", catalog.SubcategoryBIB, BoxFraction{})
	r.Register("", catalog.SubcategorySyrups, r.syrup)
	r.Register(catalog.CategoryMinerals, catalog.SubcategoryJuices, Servings{})

	return r
}

var defaultRegistry = NewRegistry()

// Default returns the registry with the standard serving size.
func Default() *Registry {
	return defaultRegistry
}

// Register binds a strategy. An empty category binds the subcategory for every category.
func (r *Registry) Register(category catalog.CategoryCode, sub catalog.Subcategory, s Strategy) {
	r.strategies[key{category, sub.Normalize()}] = s
}

// For returns the strategy for a category/subcategory.
func (r *Registry) For(category catalog.CategoryCode, sub catalog.Subcategory) (Strategy, error) {
	sub = sub.Normalize()
	if sub != catalog.SubcategoryNone {
		if s, ok := r.strategies[key{category, sub}]; ok {
			return s, nil
		}
		if s, ok := r.strategies[key{"", sub}]; ok {
			return s, nil
		}
	}
	if s, ok := r.strategies[key{category, catalog.SubcategoryNone}]; ok {
		return s, nil
	}
	return nil, apperror.NewDataIntegrity("", fmt.Sprintf("no conversion rule for category %q", category)).
		WithDetail("category", category).
		WithDetail("subcategory", sub)
}

// ForItem returns the strategy for an item and checks its uom when the rule needs one.
func (r *Registry) ForItem(item *catalog.StockItem) (Strategy, error) {
	s, err := r.For(item.CategoryCode, item.Subcategory)
	if err != nil {
		return nil, err
	}
	if s.NeedsUOM() {
		if err := CheckUOM(item.UOM); err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				ae.WithDetail("itemId", item.ID).WithDetail("item", item.Label())
			}
			return nil, err
		}
	}
	return s, nil
}

// ToServings converts a physical count into the base quantity.
func (r *Registry) ToServings(category catalog.CategoryCode, sub catalog.Subcategory, full, partial, uom decimal.Decimal) (decimal.Decimal, error) {
	s, err := r.For(category, sub)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.ValidateCount(full, partial, uom); err != nil {
		return decimal.Zero, err
	}
	return s.ToServings(full, partial, uom)
}

// ToDisplay converts a base quantity back into full and partial units.
func (r *Registry) ToDisplay(category catalog.CategoryCode, sub catalog.Subcategory, qty, uom decimal.Decimal) (full, partial decimal.Decimal, err error) {
	s, err := r.For(category, sub)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return s.ToDisplay(qty, uom)
}

// SplitBottles splits a syrup "bottles.fraction" count for the item.
// It fails for items that are not counted as syrups.
func (r *Registry) SplitBottles(item *catalog.StockItem, bottles decimal.Decimal) (full, partialServings decimal.Decimal, err error) {
	s, err := r.ForItem(item)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	syrup, ok := s.(SyrupBottle)
	if !ok {
		return decimal.Zero, decimal.Zero, apperror.NewValidation(
			fmt.Sprintf("item %s is not counted in bottles", item.Label())).
			WithDetail("rule", s.Rule())
	}
	size, err := syrup.BottleSize(item.SizeML, item.UOM)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return syrup.SplitBottles(bottles, size)
}
