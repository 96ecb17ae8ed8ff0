package stocktake

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/valuation"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func kegItem(hotel id.ID) *catalog.StockItem {
	return &catalog.StockItem{
		ID:           id.New(),
		HotelID:      hotel,
		CategoryCode: catalog.CategoryDraught,
		SKU:          "LAGER",
		Name:         "Lager Keg",
		UnitCost:     d("152.46"),
		UOM:          d("50.82"),
		Active:       true,
	}
}

func janPeriod(hotel id.ID) *period.StockPeriod {
	return period.New(hotel,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC))
}

func TestLineFigures(t *testing.T) {
	calc := valuation.NewCalculator(nil)
	item := kegItem(id.New())
	l := NewLine(id.New(), 1, item)

	l.SetOpening(d("100"), OpeningFromSnapshot)
	l.ApplyMovements(movement.Totals{
		Purchases:    d("50.82"),
		Sales:        d("40"),
		Waste:        decimal.Zero,
		TransfersIn:  decimal.Zero,
		TransfersOut: decimal.Zero,
		Adjustments:  decimal.Zero,
	})
	l.SetCount(d("2"), d("0"), valuation.BasisOf(item), time.Now(), "manager")

	f, err := l.Figures(calc)
	require.NoError(t, err)

	assert.True(t, d("110.82").Equal(f.ExpectedQty), "expected qty %s", f.ExpectedQty)
	assert.True(t, d("101.64").Equal(f.CountedQty), "counted qty %s", f.CountedQty)
	assert.True(t, d("-9.18").Equal(f.VarianceQty), "variance qty %s", f.VarianceQty)
	assert.True(t, d("332.46").Equal(valuation.Round(f.ExpectedValue)), "expected value %s", f.ExpectedValue)
	assert.True(t, d("304.92").Equal(valuation.Round(f.CountedValue)), "counted value %s", f.CountedValue)
	assert.True(t, d("-27.54").Equal(valuation.Round(f.VarianceValue)), "variance value %s", f.VarianceValue)

	stock, err := l.StockValue(calc)
	require.NoError(t, err)
	assert.True(t, stock.Equal(f.CountedValue))
}

func TestLineWithZeroUOMIsNeverValued(t *testing.T) {
	item := kegItem(id.New())
	item.UOM = decimal.Zero
	l := NewLine(id.New(), 1, item)
	l.SetCount(d("1"), d("0"), valuation.BasisOf(item), time.Now(), "manager")

	_, err := l.Figures(valuation.NewCalculator(nil))
	require.Error(t, err)
	assert.True(t, apperror.IsDataIntegrity(err))
}

func TestStateMachine(t *testing.T) {
	hotel := id.New()
	p := janPeriod(hotel)
	item := kegItem(hotel)

	st := New(p)
	require.True(t, st.IsDraft())

	err := st.Approve(time.Now(), "manager")
	require.Error(t, err)
	assert.True(t, apperror.IsPrecondition(err), "empty sheet cannot be approved")

	st.Lines = append(st.Lines, NewLine(st.ID, 1, item))
	err = st.CanApprove()
	require.Error(t, err)
	assert.True(t, apperror.IsPrecondition(err), "uncounted line blocks approval")
	assert.Equal(t, []int{1}, st.Uncounted())

	st.Lines[0].SetCount(d("1"), d("0"), valuation.BasisOf(item), time.Now(), "manager")
	require.NoError(t, st.Approve(time.Now(), "manager"))
	assert.Equal(t, StatusApproved, st.Status)
	require.NotNil(t, st.ApprovedBy)
	assert.Equal(t, "manager", *st.ApprovedBy)

	assert.True(t, apperror.IsPrecondition(st.CheckDraft()))
	assert.True(t, apperror.IsPrecondition(st.Approve(time.Now(), "manager")))

	require.NoError(t, st.Reopen())
	assert.True(t, st.IsDraft())
	assert.Nil(t, st.ApprovedAt)
	assert.True(t, apperror.IsPrecondition(st.Reopen()))

	st.OpeningStale = true
	assert.True(t, apperror.IsPrecondition(st.CanApprove()))
}

func TestMatchesPeriod(t *testing.T) {
	hotel := id.New()
	p := janPeriod(hotel)

	require.NoError(t, New(p).MatchesPeriod(p))

	shifted := New(p)
	shifted.EndDate = shifted.EndDate.AddDate(0, 0, 1)
	assert.True(t, apperror.IsDataIntegrity(shifted.MatchesPeriod(p)))

	foreign := New(p)
	foreign.HotelID = id.New()
	assert.True(t, apperror.IsDataIntegrity(foreign.MatchesPeriod(p)))

	other := janPeriod(hotel)
	assert.True(t, apperror.IsDataIntegrity(New(p).MatchesPeriod(other)))
}

func TestSortLinesRenumbers(t *testing.T) {
	hotel := id.New()
	mk := func(cat catalog.CategoryCode, name string) Line {
		item := kegItem(hotel)
		item.CategoryCode = cat
		item.Name = name
		return NewLine(id.New(), 0, item)
	}
	lines := []Line{
		mk(catalog.CategoryMinerals, "Cola"),
		mk(catalog.CategoryDraught, "stout"),
		mk(catalog.CategoryDraught, "Lager"),
	}
	SortLines(lines)

	assert.Equal(t, "Lager", lines[0].ItemName)
	assert.Equal(t, "stout", lines[1].ItemName)
	assert.Equal(t, "Cola", lines[2].ItemName)
	for i := range lines {
		assert.Equal(t, i+1, lines[i].LineNo)
	}
}

func TestComputeTotalsFlagsCollapse(t *testing.T) {
	calc := valuation.NewCalculator(nil)
	hotel := id.New()
	st := New(janPeriod(hotel))

	for i := 0; i < 4; i++ {
		item := kegItem(hotel)
		l := NewLine(st.ID, i+1, item)
		l.SetOpening(d("50.82"), OpeningFromSnapshot)
		full := "0"
		if i == 3 {
			full = "1"
		}
		l.SetCount(d(full), d("0"), valuation.BasisOf(item), time.Now(), "manager")
		st.Lines = append(st.Lines, l)
	}

	totals, err := ComputeTotals(st, calc, decimal.Zero)
	require.NoError(t, err)

	draught := totals.Categories[catalog.CategoryDraught]
	require.NotNil(t, draught)
	assert.Equal(t, 4, draught.Lines)
	assert.Equal(t, 3, draught.ZeroCountLines)
	assert.True(t, d("152.46").Equal(valuation.Round(draught.StockValue)))
	assert.True(t, d("609.84").Equal(valuation.Round(draught.ExpectedValue)))

	assert.Equal(t, 3, totals.Warnings.Count(apperror.WarnZeroCount))
	assert.True(t, totals.Warnings.Has(apperror.WarnCategoryCollapse))
	assert.True(t, totals.Grand.CountedValue.Equal(draught.CountedValue))
}

func TestComputeTotalsHealthyCount(t *testing.T) {
	calc := valuation.NewCalculator(nil)
	hotel := id.New()
	st := New(janPeriod(hotel))

	item := kegItem(hotel)
	item.UnitCost = decimal.Zero
	l := NewLine(st.ID, 1, item)
	l.SetOpening(d("50.82"), OpeningFromSnapshot)
	l.SetCount(d("1"), d("0"), valuation.BasisOf(item), time.Now(), "manager")
	st.Lines = append(st.Lines, l)

	totals, err := ComputeTotals(st, calc, decimal.Zero)
	require.NoError(t, err)

	assert.False(t, totals.Warnings.Has(apperror.WarnCategoryCollapse))
	assert.False(t, totals.Warnings.Has(apperror.WarnZeroCount))
	assert.True(t, totals.Warnings.Has(apperror.WarnZeroUnitCost))
	assert.True(t, totals.Grand.StockValue.IsZero())
}
