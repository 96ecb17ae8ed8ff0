//go:build integration

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"barstock/internal/app"
	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/stocktake"
	"barstock/internal/infrastructure/storage/postgres"
)

func startPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("barstock_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn, 4))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// A second run finds every migration applied.
	require.NoError(t, postgres.Migrate(ctx, pool))

	return postgres.NewStore(pool)
}

func TestPostgresFullCycle(t *testing.T) {
	store := startPostgres(t)
	stores, err := app.PostgresStores(store)
	require.NoError(t, err)
	engine := app.New(stores, app.Options{})

	hotel := id.New()
	ctx := appctx.WithActor(context.Background(), &appctx.Actor{UserID: "manager", HotelID: hotel})

	keg := catalog.StockItem{
		ID: id.New(), HotelID: hotel, CategoryCode: catalog.CategoryDraught,
		SKU: "KEG-50", Name: "Lager Keg", UnitCost: d("152.46"), UOM: d("50.82"), Active: true,
	}
	gin := catalog.StockItem{
		ID: id.New(), HotelID: hotel, CategoryCode: catalog.CategorySpirits,
		SKU: "GIN-70", Name: "Gin 70cl", UnitCost: d("25.60"), UOM: d("1"), SizeML: d("700"), Active: true,
	}
	require.NoError(t, store.Items().Put(ctx, keg, gin))

	jan, err := engine.Periods.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: day(1, 1), EndDate: day(1, 31)})
	require.NoError(t, err)

	_, err = engine.Periods.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: day(1, 15), EndDate: day(2, 15)})
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodOverlap), "got %v", err)

	_, err = engine.Movements.Record(ctx, movement.RecordInput{
		HotelID: hotel, ItemID: keg.ID, PeriodID: jan.ID,
		Type: movement.TypePurchase, Quantity: d("101.64"), UnitCost: d("152.46"),
		OccurredAt: day(1, 10),
	})
	require.NoError(t, err)

	created, err := engine.Stocktakes.CreateForPeriod(ctx, jan.ID)
	require.NoError(t, err)
	st := created.Stocktake
	require.Len(t, st.Lines, 2)
	assert.True(t, st.LineByItem(keg.ID).Purchases.Equal(d("101.64")))

	_, err = engine.Stocktakes.CreateForPeriod(ctx, jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeStocktakeExists), "got %v", err)

	_, err = engine.Stocktakes.SetCountedUnits(ctx, st.LineByItem(keg.ID).ID, d("2"), d("26.5"))
	require.NoError(t, err)
	_, err = engine.Stocktakes.SetCountedBottles(ctx, st.LineByItem(gin.ID).ID, d("2.25"))
	require.NoError(t, err)

	approved, err := engine.Stocktakes.Approve(ctx, st.ID)
	require.NoError(t, err)
	// 384.42 for the keg, 57.60 for 2.25 bottles of gin.
	assert.True(t, approved.Close.TotalValue.Equal(d("442.02")), "got %s", approved.Close.TotalValue)

	snaps, err := store.Snapshots().ListByPeriod(ctx, jan.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	firstIDs := map[id.ID]id.ID{snaps[0].ItemID: snaps[0].ID, snaps[1].ItemID: snaps[1].ID}

	_, err = engine.Closing.CloseByPeriod(ctx, jan.ID)
	require.NoError(t, err)
	snaps, err = store.Snapshots().ListByPeriod(ctx, jan.ID)
	require.NoError(t, err)
	for _, s := range snaps {
		assert.Equal(t, firstIDs[s.ItemID], s.ID, "re-close keeps snapshot ids")
	}

	feb, err := engine.Periods.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: day(2, 1), EndDate: day(2, 29)})
	require.NoError(t, err)
	next, err := engine.Stocktakes.CreateForPeriod(ctx, feb.ID)
	require.NoError(t, err)
	assert.True(t, next.Stocktake.LineByItem(keg.ID).OpeningQty.Equal(d("128.14")))
	assert.True(t, next.Stocktake.LineByItem(gin.ID).OpeningQty.Equal(d("2.25")))

	_, err = engine.Stocktakes.Reopen(ctx, st.ID)
	require.NoError(t, err)

	archives, err := stores.Archives.ListByPeriod(ctx, jan.ID)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Len(t, archives[0].Snapshots, 2)

	stale, err := engine.Stocktakes.GetByID(ctx, next.Stocktake.ID)
	require.NoError(t, err)
	assert.True(t, stale.OpeningStale)
	assert.Equal(t, stocktake.StatusDraft, stale.Status)

	report, err := engine.Integrity.CheckHotel(ctx, hotel)
	require.NoError(t, err)
	assert.NotNil(t, report)
}
