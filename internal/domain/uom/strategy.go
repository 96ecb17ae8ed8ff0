// Package uom converts physical stock counts into base quantities and back.
//
// Every category/subcategory maps to exactly one Strategy through the Registry,
// so conversion rules are decided in one place and nowhere else.
package uom

import (
	"fmt"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
)

// Rule names a conversion rule-set.
type Rule string

const (
	RuleServings         Rule = "servings"
	RuleFractionalBottle Rule = "fractional_bottle"
	RuleBoxFraction      Rule = "box_fraction"
	RuleSyrupBottle      Rule = "syrup_bottle"
)

// Unit is what a strategy's base quantity counts.
type Unit string

const (
	UnitServing Unit = "serving"
	UnitBox     Unit = "box"
)

// Basis selects how a physical count is costed.
type Basis string

const (
	// BasisServing costs full units at unit_cost and loose servings at unit_cost/uom.
	BasisServing Basis = "serving"
	// BasisContainer costs (full + partial) containers at unit_cost.
	BasisContainer Basis = "container"
)

// Strategy is one conversion rule-set.
type Strategy interface {
	Rule() Rule
	// Unit of the base quantity returned by ToServings.
	Unit() Unit
	// Basis used when valuing a physical count.
	Basis() Basis
	// NeedsUOM reports whether the item's uom takes part in conversion.
	NeedsUOM() bool
	// ValidateCount checks a staff-entered physical count. A partial must be
	// less than one full unit so the count survives ToDisplay unchanged.
	ValidateCount(full, partial, uom decimal.Decimal) error
	// ToServings converts a physical count into the base quantity.
	ToServings(full, partial, uom decimal.Decimal) (decimal.Decimal, error)
	// ToDisplay splits a base quantity back into full and partial units.
	ToDisplay(qty, uom decimal.Decimal) (full, partial decimal.Decimal, err error)
}

var one = decimal.NewFromInt(1)

// CheckUOM returns a data integrity error for uom <= 0.
func CheckUOM(uom decimal.Decimal) error {
	if uom.Sign() <= 0 {
		return apperror.NewDataIntegrity(apperror.CodeInvalidUOM,
			fmt.Sprintf("uom must be positive, got %s", uom.String())).
			WithDetail("uom", uom.String())
	}
	return nil
}

func checkWhole(full decimal.Decimal) error {
	if full.IsNegative() {
		return apperror.NewValidation("full units cannot be negative").WithDetail("full", full.String())
	}
	if !full.Equal(full.Floor()) {
		return apperror.NewValidation("full units must be a whole number").WithDetail("full", full.String())
	}
	return nil
}

func checkFraction(partial decimal.Decimal) error {
	if partial.IsNegative() || partial.GreaterThanOrEqual(one) {
		return apperror.NewValidation("partial units must be at least 0 and below 1; count a whole container as a full unit").
			WithDetail("partial", partial.String())
	}
	return nil
}

// floorDiv returns floor(a/b), corrected for the rounding of decimal division.
func floorDiv(a, b decimal.Decimal) decimal.Decimal {
	q := a.Div(b).Floor()
	if q.Add(one).Mul(b).LessThanOrEqual(a) {
		q = q.Add(one)
	} else if q.Mul(b).GreaterThan(a) {
		q = q.Sub(one)
	}
	return q
}

// --- Servings ---

// Servings is the draught/bottled/minerals rule: partial is already in servings.
type Servings struct{}

func (Servings) Rule() Rule     { return RuleServings }
func (Servings) Unit() Unit     { return UnitServing }
func (Servings) Basis() Basis   { return BasisServing }
func (Servings) NeedsUOM() bool { return true }

// ValidateCount rejects loose servings that make up a full unit. A uom <= 0
// is left to ToServings, which reports it as a data integrity error.
func (Servings) ValidateCount(full, partial, uom decimal.Decimal) error {
	if err := checkWhole(full); err != nil {
		return err
	}
	if partial.IsNegative() {
		return apperror.NewValidation("partial servings cannot be negative").
			WithDetail("partial", partial.String())
	}
	if uom.IsPositive() && partial.GreaterThanOrEqual(uom) {
		return apperror.NewValidation(
			fmt.Sprintf("partial servings must be below one full unit (%s); count it as a full unit", uom.String())).
			WithDetail("partial", partial.String()).
			WithDetail("uom", uom.String())
	}
	return nil
}

// ToServings returns full*uom + partial.
func (Servings) ToServings(full, partial, uom decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckUOM(uom); err != nil {
		return decimal.Zero, err
	}
	return full.Mul(uom).Add(partial), nil
}

// ToDisplay returns whole units and the leftover servings.
func (Servings) ToDisplay(qty, uom decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := CheckUOM(uom); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	full := floorDiv(qty, uom)
	return full, qty.Sub(full.Mul(uom)), nil
}

// --- FractionalBottle ---

// FractionalBottle is the spirits/wine rule: partial is a fraction of one bottle.
type FractionalBottle struct{}

func (FractionalBottle) Rule() Rule     { return RuleFractionalBottle }
func (FractionalBottle) Unit() Unit     { return UnitServing }
func (FractionalBottle) Basis() Basis   { return BasisContainer }
func (FractionalBottle) NeedsUOM() bool { return true }

func (FractionalBottle) ValidateCount(full, partial, _ decimal.Decimal) error {
	if err := checkWhole(full); err != nil {
		return err
	}
	return checkFraction(partial)
}

// ToServings returns (full + partial) * uom.
func (FractionalBottle) ToServings(full, partial, uom decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckUOM(uom); err != nil {
		return decimal.Zero, err
	}
	return full.Add(partial).Mul(uom), nil
}

// ToDisplay returns whole bottles and the bottle fraction left over.
func (FractionalBottle) ToDisplay(qty, uom decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := CheckUOM(uom); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	full := floorDiv(qty, uom)
	partial := qty.Sub(full.Mul(uom)).Div(uom)
	return full, partial, nil
}

// --- BoxFraction ---

// BoxFraction is the bag-in-box rule. No servings: the base quantity is boxes
// and uom is ignored.
type BoxFraction struct{}

func (BoxFraction) Rule() Rule     { return RuleBoxFraction }
func (BoxFraction) Unit() Unit     { return UnitBox }
func (BoxFraction) Basis() Basis   { return BasisContainer }
func (BoxFraction) NeedsUOM() bool { return false }

func (BoxFraction) ValidateCount(full, partial, _ decimal.Decimal) error {
	if err := checkWhole(full); err != nil {
		return err
	}
	return checkFraction(partial)
}

// ToServings returns full + partial boxes.
func (BoxFraction) ToServings(full, partial, _ decimal.Decimal) (decimal.Decimal, error) {
	return full.Add(partial), nil
}

// ToDisplay splits boxes into whole boxes and a box fraction.
func (BoxFraction) ToDisplay(qty, _ decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	full := qty.Floor()
	return full, qty.Sub(full), nil
}

// --- SyrupBottle ---

// SyrupBottle counts like Servings but also accepts a single "bottles.fraction"
// figure that is split on the bottle's volume.
type SyrupBottle struct {
	Servings
	ServingML decimal.Decimal
}

func (SyrupBottle) Rule() Rule { return RuleSyrupBottle }

// BottleSize returns sizeML, or uom*ServingML when the item has no size.
func (s SyrupBottle) BottleSize(sizeML, uom decimal.Decimal) (decimal.Decimal, error) {
	if sizeML.IsPositive() {
		return sizeML, nil
	}
	if err := CheckUOM(uom); err != nil {
		return decimal.Zero, err
	}
	return uom.Mul(s.ServingML), nil
}

// SplitBottles turns 10.5 into 10 full bottles plus the servings poured from
// half a bottle of bottleSizeML.
func (s SyrupBottle) SplitBottles(input, bottleSizeML decimal.Decimal) (full, partialServings decimal.Decimal, err error) {
	if input.IsNegative() {
		return decimal.Zero, decimal.Zero, apperror.NewValidation("bottle count cannot be negative").
			WithDetail("bottles", input.String())
	}
	if !bottleSizeML.IsPositive() {
		return decimal.Zero, decimal.Zero, apperror.NewDataIntegrity(apperror.CodeInvalidUOM, "syrup bottle size must be positive").
			WithDetail("sizeMl", bottleSizeML.String())
	}
	if !s.ServingML.IsPositive() {
		return decimal.Zero, decimal.Zero, apperror.NewDataIntegrity(apperror.CodeInvalidUOM, "syrup serving size must be positive")
	}
	full = input.Floor()
	partialML := input.Sub(full).Mul(bottleSizeML)
	return full, partialML.Div(s.ServingML), nil
}
