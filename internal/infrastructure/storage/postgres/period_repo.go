package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/period"
)

const periodsTable = "stock_periods"

var periodColumns = ExtractDBColumns[period.StockPeriod]()

// PeriodRepo implements period.Repository. Overlap is also enforced by an
// exclusion constraint, so a racing insert fails with PERIOD_OVERLAP.
type PeriodRepo struct{ base }

var _ period.Repository = (*PeriodRepo)(nil)

func (r *PeriodRepo) Create(ctx context.Context, p *period.StockPeriod) error {
	sql, args, err := r.builder().Insert(periodsTable).SetMap(StructToMap(p)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError(err, "insert period")
	}
	return nil
}

func (r *PeriodRepo) get(ctx context.Context, periodID id.ID, forUpdate bool) (*period.StockPeriod, error) {
	q := r.builder().Select(periodColumns...).From(periodsTable).Where(squirrel.Eq{"id": periodID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var p period.StockPeriod
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_period", periodID)
		}
		return nil, fmt.Errorf("get period: %w", err)
	}
	return &p, nil
}

func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*period.StockPeriod, error) {
	return r.get(ctx, periodID, false)
}

func (r *PeriodRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*period.StockPeriod, error) {
	return r.get(ctx, periodID, true)
}

func (r *PeriodRepo) ListByHotel(ctx context.Context, hotelID id.ID) ([]period.StockPeriod, error) {
	sql, args, err := r.builder().Select(periodColumns...).From(periodsTable).
		Where(squirrel.Eq{"hotel_id": hotelID}).
		OrderBy("start_date", "end_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var periods []period.StockPeriod
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &periods, sql, args...); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// Update writes the lifecycle fields with optimistic locking.
func (r *PeriodRepo) Update(ctx context.Context, p *period.StockPeriod) error {
	sql, args, err := r.builder().Update(periodsTable).
		Set("is_closed", p.IsClosed).
		Set("closed_at", p.ClosedAt).
		Set("closed_by", p.ClosedBy).
		Set("reopened_at", p.ReopenedAt).
		Set("reopened_by", p.ReopenedBy).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "update period")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock_period", p.ID)
	}
	p.Version++
	return nil
}

func (r *PeriodRepo) ListHotels(ctx context.Context) ([]id.ID, error) {
	var hotels []id.ID
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &hotels,
		"SELECT DISTINCT hotel_id FROM "+periodsTable+" ORDER BY hotel_id")
	if err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}
	return hotels, nil
}
