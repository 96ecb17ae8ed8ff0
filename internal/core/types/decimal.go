// Package types provides decimal quantity and money helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Qty is a stock quantity (servings, bottles or boxes depending on the item).
type Qty = decimal.Decimal

// MoneyPlaces is the number of decimals shown for money.
const MoneyPlaces int32 = 2

// QtyPlaces is the number of decimals shown for quantities.
const QtyPlaces int32 = 2

var half = decimal.New(5, -1)

// Zero returns zero.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// Dec creates a decimal from a string, panics on error.
// Use only for constants and tests.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Int creates a decimal from an integer.
func Int(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// RoundHalfUp rounds d to places decimals, ties toward positive infinity.
// 2.345 -> 2.35, -2.345 -> -2.34.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// RoundMoney rounds for display. Apply only to final, displayed totals.
func RoundMoney(m Money) Money {
	return RoundHalfUp(m, MoneyPlaces)
}

// RoundQty rounds a quantity for display.
func RoundQty(q Qty) Qty {
	return RoundHalfUp(q, QtyPlaces)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// SplitWhole splits a non-negative decimal into its whole and fractional parts.
func SplitWhole(d decimal.Decimal) (whole, frac decimal.Decimal) {
	whole = d.Floor()
	return whole, d.Sub(whole)
}

// Between reports lo <= d <= hi.
func Between(d, lo, hi decimal.Decimal) bool {
	return d.GreaterThanOrEqual(lo) && d.LessThanOrEqual(hi)
}
