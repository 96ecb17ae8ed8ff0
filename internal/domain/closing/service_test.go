package closing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/closing"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
	"barstock/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

// driftingSnapshots reports one cent more than was written.
type driftingSnapshots struct {
	snapshot.Repository
}

func (r driftingSnapshots) ListByPeriod(ctx context.Context, periodID id.ID) ([]snapshot.StockSnapshot, error) {
	snaps, err := r.Repository.ListByPeriod(ctx, periodID)
	if len(snaps) > 0 {
		snaps[0].ClosingStockValue = snaps[0].ClosingStockValue.Add(d("0.01"))
	}
	return snaps, err
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	periods *period.Service
	svc     *closing.Service
	hotel   id.ID
	jan     *period.StockPeriod

	keg, gin catalog.StockItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	hotel := id.New()
	f := &fixture{
		t:       t,
		ctx:     appctx.WithActor(context.Background(), &appctx.Actor{UserID: "manager", HotelID: hotel}),
		store:   store,
		periods: period.NewService(store.Periods(), store.TxManager()),
		hotel:   hotel,
	}
	f.svc = f.closer(store.Snapshots())

	f.keg = f.item(catalog.CategoryDraught, "Lager Keg", "152.46", "50.82")
	f.gin = f.item(catalog.CategorySpirits, "Gin 70cl", "25.60", "1")
	require.NoError(t, store.Items().Put(f.ctx, f.keg, f.gin))

	var err error
	f.jan, err = f.periods.CreatePeriod(f.ctx, period.CreateInput{HotelID: hotel, StartDate: date(1, 1), EndDate: date(1, 31)})
	require.NoError(t, err)
	return f
}

func (f *fixture) closer(snaps snapshot.Repository) *closing.Service {
	return closing.NewService(f.periods, f.store.Items(), snaps, f.store.Archives(),
		f.store.Stocktakes(), f.store.TxManager(), nil)
}

func (f *fixture) item(cat catalog.CategoryCode, name, cost, uom string) catalog.StockItem {
	return catalog.StockItem{
		ID: id.New(), HotelID: f.hotel, CategoryCode: cat, SKU: name, Name: name,
		UnitCost: d(cost), UOM: d(uom), Active: true,
	}
}

// approved builds an approved sheet for p counting each item as 2 full units.
func (f *fixture) approved(p *period.StockPeriod, items ...catalog.StockItem) *stocktake.Stocktake {
	f.t.Helper()
	st := stocktake.New(p)
	for i := range items {
		l := stocktake.NewLine(st.ID, i+1, &items[i])
		partial := "0"
		if items[i].CategoryCode == catalog.CategoryDraught {
			partial = "26.5"
		}
		l.SetCount(d("2"), d(partial), valuation.BasisOf(&items[i]), time.Now(), "manager")
		st.Lines = append(st.Lines, l)
	}
	require.NoError(f.t, st.Approve(time.Now(), "manager"))
	return st
}

// untouched asserts a refused close left no trace.
func (f *fixture) untouched() {
	f.t.Helper()
	p, err := f.periods.Get(f.ctx, f.jan.ID)
	require.NoError(f.t, err)
	assert.False(f.t, p.IsClosed, "period must stay open")
	snaps, err := f.store.Snapshots().ListByPeriod(f.ctx, f.jan.ID)
	require.NoError(f.t, err)
	assert.Empty(f.t, snaps, "no snapshot may be written")
}

func TestClosePeriodWritesSnapshots(t *testing.T) {
	f := newFixture(t)
	st := f.approved(f.jan, f.keg, f.gin)

	res, err := f.svc.ClosePeriod(f.ctx, f.jan.ID, st)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.True(t, d("435.62").Equal(res.TotalValue), "got %s", res.TotalValue)

	p, err := f.periods.Get(f.ctx, f.jan.ID)
	require.NoError(t, err)
	assert.True(t, p.IsClosed)

	first, err := f.store.Snapshots().ListByPeriod(f.ctx, f.jan.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, snapshot.TotalValue(first).Equal(res.TotalValue))

	again, err := f.svc.ClosePeriod(f.ctx, f.jan.ID, st)
	require.NoError(t, err)
	assert.True(t, again.TotalValue.Equal(res.TotalValue))

	second, err := f.store.Snapshots().ListByPeriod(f.ctx, f.jan.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClosePeriodRefusals(t *testing.T) {
	tests := []struct {
		name      string
		build     func(f *fixture) (periodID id.ID, st *stocktake.Stocktake)
		integrity bool
		code      string
	}{
		{
			name: "draft stocktake",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				st := f.approved(f.jan, f.keg, f.gin)
				require.NoError(f.t, st.Reopen())
				return f.jan.ID, st
			},
			code: apperror.CodeNotApproved,
		},
		{
			name: "date range differs",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				st := f.approved(f.jan, f.keg, f.gin)
				st.EndDate = date(1, 30)
				return f.jan.ID, st
			},
			integrity: true,
			code:      apperror.CodePeriodMismatch,
		},
		{
			name: "stocktake of another period",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				feb, err := f.periods.CreatePeriod(f.ctx, period.CreateInput{HotelID: f.hotel, StartDate: date(2, 1), EndDate: date(2, 29)})
				require.NoError(f.t, err)
				return f.jan.ID, f.approved(feb, f.keg, f.gin)
			},
			integrity: true,
			code:      apperror.CodePeriodMismatch,
		},
		{
			name: "active item missing",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				return f.jan.ID, f.approved(f.jan, f.keg)
			},
			code: apperror.CodeIncompleteLines,
		},
		{
			name: "inactive item on a line",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				old := f.item(catalog.CategorySpirits, "Old Rum", "20", "1")
				old.Active = false
				require.NoError(f.t, f.store.Items().Put(f.ctx, old))
				return f.jan.ID, f.approved(f.jan, f.keg, f.gin, old)
			},
			code: apperror.CodeInactiveItemOnLine,
		},
		{
			name: "unknown item on a line",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				ghost := f.item(catalog.CategorySpirits, "Ghost", "20", "1")
				return f.jan.ID, f.approved(f.jan, f.keg, f.gin, ghost)
			},
			integrity: true,
			code:      apperror.CodeUnknownItem,
		},
		{
			name: "item of another hotel",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				foreign := f.item(catalog.CategorySpirits, "Foreign Vodka", "20", "1")
				foreign.HotelID = id.New()
				require.NoError(f.t, f.store.Items().Put(f.ctx, foreign))
				return f.jan.ID, f.approved(f.jan, f.keg, f.gin, foreign)
			},
			integrity: true,
			code:      apperror.CodeHotelMismatch,
		},
		{
			name: "line not counted",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				st := f.approved(f.jan, f.keg, f.gin)
				st.Lines[1].Counted = false
				return f.jan.ID, st
			},
			code: apperror.CodeLineNotCounted,
		},
		{
			name: "zero uom on a counted line",
			build: func(f *fixture) (id.ID, *stocktake.Stocktake) {
				st := f.approved(f.jan, f.keg, f.gin)
				st.Lines[0].ValuationUOM = decimal.Zero
				return f.jan.ID, st
			},
			integrity: true,
			code:      apperror.CodeInvalidUOM,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			periodID, st := tt.build(f)

			_, err := f.svc.ClosePeriod(f.ctx, periodID, st)
			require.Error(t, err)
			if tt.integrity {
				assert.True(t, apperror.IsDataIntegrity(err), "want data integrity, got %v", err)
			} else {
				assert.True(t, apperror.IsPrecondition(err), "want precondition, got %v", err)
			}
			assert.True(t, apperror.HasCode(err, tt.code), "want %s, got %v", tt.code, err)
			f.untouched()
		})
	}
}

func TestClosePeriodRollsBackOnValueDrift(t *testing.T) {
	f := newFixture(t)
	svc := f.closer(driftingSnapshots{Repository: f.store.Snapshots()})

	_, err := svc.ClosePeriod(f.ctx, f.jan.ID, f.approved(f.jan, f.keg, f.gin))
	require.Error(t, err)
	assert.True(t, apperror.IsDataIntegrity(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeSnapshotValueDrift))
	f.untouched()
}

func TestReopenArchivesAndRefusesWhenNextClosed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ClosePeriod(f.ctx, f.jan.ID, f.approved(f.jan, f.keg, f.gin))
	require.NoError(t, err)

	feb, err := f.periods.CreatePeriod(f.ctx, period.CreateInput{HotelID: f.hotel, StartDate: date(2, 1), EndDate: date(2, 29)})
	require.NoError(t, err)
	_, err = f.svc.ClosePeriod(f.ctx, feb.ID, f.approved(feb, f.keg, f.gin))
	require.NoError(t, err)

	err = f.svc.ReopenPeriod(f.ctx, f.jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNextPeriodClosed))

	require.NoError(t, f.svc.ReopenPeriod(f.ctx, feb.ID))
	require.NoError(t, f.svc.ReopenPeriod(f.ctx, f.jan.ID))

	archives, err := f.store.Archives().ListByPeriod(f.ctx, f.jan.ID)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, closing.ReasonReopen, archives[0].Reason)
	assert.Len(t, archives[0].Snapshots, 2)

	snaps, err := f.store.Snapshots().ListByPeriod(f.ctx, f.jan.ID)
	require.NoError(t, err)
	for _, s := range snaps {
		assert.True(t, s.Stale)
	}

	err = f.svc.ReopenPeriod(f.ctx, f.jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodNotClosed))
}
