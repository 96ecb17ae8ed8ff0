package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/id"
	"barstock/internal/domain/snapshot"
)

const snapshotsTable = "stock_snapshots"

var snapshotColumns = ExtractDBColumns[snapshot.StockSnapshot]()

// SnapshotRepo implements snapshot.Repository.
type SnapshotRepo struct{ base }

var _ snapshot.Repository = (*SnapshotRepo)(nil)

// Upsert writes every snapshot in one batch. The conflict target is the
// (hotel, period, item) key, so a re-close overwrites rows and keeps their ids.
func (r *SnapshotRepo) Upsert(ctx context.Context, snaps []snapshot.StockSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	updates := make([]string, 0, len(snapshotColumns))
	for _, c := range snapshotColumns {
		switch c {
		case "id", "hotel_id", "period_id", "item_id":
			continue
		}
		updates = append(updates, c+" = EXCLUDED."+c)
	}
	suffix := "ON CONFLICT (hotel_id, period_id, item_id) DO UPDATE SET " + strings.Join(updates, ", ")

	queries := make([]BatchQuery, 0, len(snaps))
	for i := range snaps {
		sql, args, err := r.builder().Insert(snapshotsTable).SetMap(StructToMap(&snaps[i])).Suffix(suffix).ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		queries = append(queries, BatchQuery{SQL: sql, Args: args})
	}
	if _, err := r.txm.ExecBatch(ctx, queries); err != nil {
		return mapError(err, "upsert snapshots")
	}
	return nil
}

func (r *SnapshotRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]snapshot.StockSnapshot, error) {
	sql, args, err := r.builder().Select(snapshotColumns...).From(snapshotsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var snaps []snapshot.StockSnapshot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &snaps, sql, args...); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

func (r *SnapshotRepo) DeleteExcept(ctx context.Context, periodID id.ID, keep []id.ID) (int, error) {
	q := r.builder().Delete(snapshotsTable).Where(squirrel.Eq{"period_id": periodID})
	if len(keep) > 0 {
		q = q.Where(squirrel.NotEq{"item_id": keep})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err, "delete snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func (r *SnapshotRepo) MarkStale(ctx context.Context, periodID id.ID, stale bool) error {
	sql, args, err := r.builder().Update(snapshotsTable).
		Set("stale", stale).
		Where(squirrel.Eq{"period_id": periodID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError(err, "mark snapshots stale")
	}
	return nil
}
