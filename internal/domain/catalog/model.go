// Package catalog holds the stock categories and items the engine reads.
// Items are maintained elsewhere; nothing in the engine mutates them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// CategoryCode is the immutable code of a stock category.
type CategoryCode string

const (
	CategoryDraught  CategoryCode = "D"
	CategoryBottled  CategoryCode = "B"
	CategorySpirits  CategoryCode = "S"
	CategoryWine     CategoryCode = "W"
	CategoryMinerals CategoryCode = "M"
)

// Subcategory refines the conversion rules inside a category.
type Subcategory string

const (
	SubcategoryNone   Subcategory = ""
	SubcategoryBIB    Subcategory = "BIB"
	SubcategorySyrups Subcategory = "SYRUPS"
	SubcategoryJuices Subcategory = "JUICES"
)

// Normalize upper-cases and trims a subcategory read from storage or input.
func (s Subcategory) Normalize() Subcategory {
	return Subcategory(strings.ToUpper(strings.TrimSpace(string(s))))
}

// StockCategory is a category code with its display name.
type StockCategory struct {
	Code CategoryCode `json:"code"`
	Name string       `json:"name"`
}

var categories = []StockCategory{
	{Code: CategoryDraught, Name: "Draught"},
	{Code: CategoryBottled, Name: "Bottled"},
	{Code: CategorySpirits, Name: "Spirits"},
	{Code: CategoryWine, Name: "Wine"},
	{Code: CategoryMinerals, Name: "Minerals"},
}

// Categories returns every known category in reporting order.
func Categories() []StockCategory {
	out := make([]StockCategory, len(categories))
	copy(out, categories)
	return out
}

// LookupCategory finds a category by code.
func LookupCategory(code CategoryCode) (StockCategory, bool) {
	for _, c := range categories {
		if c.Code == code {
			return c, true
		}
	}
	return StockCategory{}, false
}

// Valid reports whether the code is a known category.
func (c CategoryCode) Valid() bool {
	_, ok := LookupCategory(c)
	return ok
}

// Rank orders categories for reports.
func (c CategoryCode) Rank() int {
	for i, cat := range categories {
		if cat.Code == c {
			return i
		}
	}
	return len(categories)
}

// StockItem is one stocked product of a hotel.
type StockItem struct {
	ID           id.ID           `db:"id" json:"id"`
	HotelID      id.ID           `db:"hotel_id" json:"hotelId"`
	CategoryCode CategoryCode    `db:"category_code" json:"categoryCode"`
	Subcategory  Subcategory     `db:"subcategory" json:"subcategory,omitempty"`
	SKU          string          `db:"sku" json:"sku"`
	Name         string          `db:"name" json:"name"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unitCost"`
	UOM          decimal.Decimal `db:"uom" json:"uom"`
	SizeML       decimal.Decimal `db:"size_ml" json:"sizeMl"`
	Active       bool            `db:"active" json:"active"`
}

// Validate checks the fields every item needs regardless of category.
// Category-specific uom rules live with the conversion strategies.
func (i *StockItem) Validate() error {
	if id.IsNil(i.ID) || id.IsNil(i.HotelID) {
		return apperror.NewDataIntegrity(apperror.CodeUnknownItem, "stock item is missing its id or hotel").
			WithDetail("itemId", i.ID)
	}
	if !i.CategoryCode.Valid() {
		return apperror.NewDataIntegrity("", fmt.Sprintf("stock item %s has unknown category %q", i.Name, i.CategoryCode)).
			WithDetail("itemId", i.ID)
	}
	if i.UnitCost.IsNegative() {
		return apperror.NewDataIntegrity("", fmt.Sprintf("stock item %s has a negative unit cost", i.Name)).
			WithDetail("itemId", i.ID)
	}
	return nil
}

// Label is a short human description for logs and findings.
func (i *StockItem) Label() string {
	if i.SKU != "" {
		return i.SKU + " " + i.Name
	}
	return i.Name
}
