package stocktake

import (
	"sort"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/valuation"
)

// DefaultCollapseRatio is the counted/expected value ratio below which a
// category is reported as collapsed.
var DefaultCollapseRatio = decimal.New(10, -2)

// CategoryTotals sums the lines of one category.
type CategoryTotals struct {
	Category catalog.CategoryCode `json:"category"`
	Name     string               `json:"name"`
	Lines    int                  `json:"lines"`

	Opening      decimal.Decimal `json:"opening"`
	Purchases    decimal.Decimal `json:"purchases"`
	Sales        decimal.Decimal `json:"sales"`
	Waste        decimal.Decimal `json:"waste"`
	TransfersIn  decimal.Decimal `json:"transfersIn"`
	TransfersOut decimal.Decimal `json:"transfersOut"`
	Adjustments  decimal.Decimal `json:"adjustments"`
	Expected     decimal.Decimal `json:"expected"`
	Counted      decimal.Decimal `json:"counted"`
	Variance     decimal.Decimal `json:"variance"`

	OpeningValue  decimal.Decimal `json:"openingValue"`
	ExpectedValue decimal.Decimal `json:"expectedValue"`
	CountedValue  decimal.Decimal `json:"countedValue"`
	VarianceValue decimal.Decimal `json:"varianceValue"`

	// StockValue is the reported stock on hand: the counted value.
	StockValue decimal.Decimal `json:"stockValue"`

	UncountedLines        int `json:"uncountedLines"`
	ZeroCountLines        int `json:"zeroCountLines"`
	PositiveExpectedLines int `json:"positiveExpectedLines"`
}

func newCategoryTotals(code catalog.CategoryCode) *CategoryTotals {
	name := string(code)
	if c, ok := catalog.LookupCategory(code); ok {
		name = c.Name
	}
	z := decimal.Zero
	return &CategoryTotals{
		Category: code, Name: name,
		Opening: z, Purchases: z, Sales: z, Waste: z, TransfersIn: z, TransfersOut: z,
		Adjustments: z, Expected: z, Counted: z, Variance: z,
		OpeningValue: z, ExpectedValue: z, CountedValue: z, VarianceValue: z, StockValue: z,
	}
}

func (c *CategoryTotals) add(l *Line, f Figures) {
	c.Lines++
	c.Opening = c.Opening.Add(f.OpeningQty)
	c.Purchases = c.Purchases.Add(l.Purchases)
	c.Sales = c.Sales.Add(l.Sales)
	c.Waste = c.Waste.Add(l.Waste)
	c.TransfersIn = c.TransfersIn.Add(l.TransfersIn)
	c.TransfersOut = c.TransfersOut.Add(l.TransfersOut)
	c.Adjustments = c.Adjustments.Add(l.Adjustments)
	c.Expected = c.Expected.Add(f.ExpectedQty)
	c.Counted = c.Counted.Add(f.CountedQty)
	c.Variance = c.Variance.Add(f.VarianceQty)
	c.OpeningValue = c.OpeningValue.Add(f.OpeningValue)
	c.ExpectedValue = c.ExpectedValue.Add(f.ExpectedValue)
	c.CountedValue = c.CountedValue.Add(f.CountedValue)
	c.VarianceValue = c.VarianceValue.Add(f.VarianceValue)
	c.StockValue = c.CountedValue

	if !l.Counted {
		c.UncountedLines++
	}
	if f.ExpectedQty.IsPositive() {
		c.PositiveExpectedLines++
		if l.Counted && f.CountedQty.IsZero() {
			c.ZeroCountLines++
		}
	}
}

func (c *CategoryTotals) merge(o *CategoryTotals) {
	c.Lines += o.Lines
	c.Opening = c.Opening.Add(o.Opening)
	c.Purchases = c.Purchases.Add(o.Purchases)
	c.Sales = c.Sales.Add(o.Sales)
	c.Waste = c.Waste.Add(o.Waste)
	c.TransfersIn = c.TransfersIn.Add(o.TransfersIn)
	c.TransfersOut = c.TransfersOut.Add(o.TransfersOut)
	c.Adjustments = c.Adjustments.Add(o.Adjustments)
	c.Expected = c.Expected.Add(o.Expected)
	c.Counted = c.Counted.Add(o.Counted)
	c.Variance = c.Variance.Add(o.Variance)
	c.OpeningValue = c.OpeningValue.Add(o.OpeningValue)
	c.ExpectedValue = c.ExpectedValue.Add(o.ExpectedValue)
	c.CountedValue = c.CountedValue.Add(o.CountedValue)
	c.VarianceValue = c.VarianceValue.Add(o.VarianceValue)
	c.StockValue = c.CountedValue
	c.UncountedLines += o.UncountedLines
	c.ZeroCountLines += o.ZeroCountLines
	c.PositiveExpectedLines += o.PositiveExpectedLines
}

// Rounded returns a copy rounded for display.
func (c CategoryTotals) Rounded() CategoryTotals {
	q, m := types.RoundQty, types.RoundMoney
	c.Opening, c.Purchases, c.Sales, c.Waste = q(c.Opening), q(c.Purchases), q(c.Sales), q(c.Waste)
	c.TransfersIn, c.TransfersOut, c.Adjustments = q(c.TransfersIn), q(c.TransfersOut), q(c.Adjustments)
	c.Expected, c.Counted, c.Variance = q(c.Expected), q(c.Counted), q(c.Variance)
	c.OpeningValue, c.ExpectedValue = m(c.OpeningValue), m(c.ExpectedValue)
	c.CountedValue, c.VarianceValue, c.StockValue = m(c.CountedValue), m(c.VarianceValue), m(c.StockValue)
	return c
}

// Totals are the per-category and grand totals of a stocktake.
type Totals struct {
	Categories map[catalog.CategoryCode]*CategoryTotals `json:"categories"`
	Grand      CategoryTotals                           `json:"grand"`
	Warnings   apperror.Warnings                        `json:"warnings,omitempty"`
}

// Ordered returns the categories in reporting order.
func (t *Totals) Ordered() []*CategoryTotals {
	out := make([]*CategoryTotals, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category.Rank() < out[j].Category.Rank()
	})
	return out
}

// Rounded returns a display copy of the totals.
func (t *Totals) Rounded() *Totals {
	out := &Totals{
		Categories: make(map[catalog.CategoryCode]*CategoryTotals, len(t.Categories)),
		Grand:      t.Grand.Rounded(),
		Warnings:   t.Warnings,
	}
	for code, c := range t.Categories {
		r := c.Rounded()
		out.Categories[code] = &r
	}
	return out
}

// ComputeTotals sums every line at full precision and collects review warnings.
// A zero ratio selects DefaultCollapseRatio.
func ComputeTotals(st *Stocktake, calc *valuation.Calculator, collapseRatio decimal.Decimal) (*Totals, error) {
	if !collapseRatio.IsPositive() {
		collapseRatio = DefaultCollapseRatio
	}

	t := &Totals{Categories: make(map[catalog.CategoryCode]*CategoryTotals)}
	grand := newCategoryTotals("")
	grand.Name = "Total"

	for i := range st.Lines {
		l := &st.Lines[i]
		f, err := l.Figures(calc)
		if err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				ae.WithDetail("lineNo", l.LineNo).WithDetail("itemId", l.ItemID)
			}
			return nil, err
		}

		c, ok := t.Categories[l.CategoryCode]
		if !ok {
			c = newCategoryTotals(l.CategoryCode)
			t.Categories[l.CategoryCode] = c
		}
		c.add(l, f)

		if l.ValuationUnitCost.IsZero() {
			t.Warnings.Add(apperror.NewWarning(apperror.WarnZeroUnitCost,
				"line %d (%s) has no unit cost; valued at zero", l.LineNo, l.ItemName).
				With("lineNo", l.LineNo).With("itemId", l.ItemID))
		}
		if l.Counted && f.CountedQty.IsZero() && f.ExpectedQty.IsPositive() {
			t.Warnings.Add(apperror.NewWarning(apperror.WarnZeroCount,
				"line %d (%s) counted zero against expected %s", l.LineNo, l.ItemName, types.RoundQty(f.ExpectedQty)).
				With("lineNo", l.LineNo).With("itemId", l.ItemID))
		}
	}

	for _, c := range t.Ordered() {
		if collapsed(c, collapseRatio) {
			t.Warnings.Add(apperror.NewWarning(apperror.WarnCategoryCollapse,
				"%s counted value %s is far below expected %s (%d of %d stocked lines counted zero)",
				c.Name, types.RoundMoney(c.CountedValue), types.RoundMoney(c.ExpectedValue),
				c.ZeroCountLines, c.PositiveExpectedLines).
				With("category", c.Category))
		}
		grand.merge(c)
	}
	t.Grand = *grand
	return t, nil
}

// collapsed reports a fully counted category whose count looks accidentally emptied.
func collapsed(c *CategoryTotals, ratio decimal.Decimal) bool {
	if c.UncountedLines > 0 || c.PositiveExpectedLines == 0 {
		return false
	}
	if c.ExpectedValue.IsPositive() && c.CountedValue.LessThan(c.ExpectedValue.Mul(ratio)) {
		return true
	}
	return c.ZeroCountLines*2 >= c.PositiveExpectedLines && c.ZeroCountLines > 0
}
