package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/id"
	"barstock/internal/domain/movement"
)

const movementsTable = "stock_movements"

var movementColumns = ExtractDBColumns[movement.StockMovement]()

// MovementRepo implements movement.Repository.
type MovementRepo struct{ base }

var _ movement.Repository = (*MovementRepo)(nil)

func (r *MovementRepo) Append(ctx context.Context, m *movement.StockMovement) error {
	sql, args, err := r.builder().Insert(movementsTable).SetMap(StructToMap(m)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError(err, "insert movement")
	}
	return nil
}

func (r *MovementRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]movement.StockMovement, error) {
	sql, args, err := r.builder().Select(movementColumns...).From(movementsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("occurred_at", "created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var ms []movement.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ms, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return ms, nil
}

type totalsRow struct {
	ItemID id.ID `db:"item_id"`
	movement.Totals
}

// sumOf sums the quantity of one movement type. ADJUSTMENT keeps its sign,
// every other type is stored positive.
func sumOf(t movement.Type, column string) string {
	return fmt.Sprintf("COALESCE(SUM(quantity) FILTER (WHERE movement_type = '%s'), 0) AS %s", t, column)
}

func (r *MovementRepo) TotalsByPeriod(ctx context.Context, periodID id.ID) (map[id.ID]movement.Totals, error) {
	sql, args, err := r.builder().
		Select(
			"item_id",
			sumOf(movement.TypePurchase, "purchases"),
			sumOf(movement.TypeSale, "sales"),
			sumOf(movement.TypeWaste, "waste"),
			sumOf(movement.TypeTransferIn, "transfers_in"),
			sumOf(movement.TypeTransferOut, "transfers_out"),
			sumOf(movement.TypeAdjustment, "adjustments"),
		).
		From(movementsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		GroupBy("item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []totalsRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}
	out := make(map[id.ID]movement.Totals, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Totals
	}
	return out, nil
}
