package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/stocktake"
)

const (
	stocktakesTable = "stocktakes"
	linesTable      = "stocktake_lines"
)

var (
	stocktakeColumns = ExtractDBColumns[stocktake.Stocktake]()
	lineColumns      = ExtractDBColumns[stocktake.Line]()
)

// StocktakeRepo implements stocktake.Repository. Lines are written with COPY,
// so Create and SaveLines must run inside a transaction.
type StocktakeRepo struct{ base }

var _ stocktake.Repository = (*StocktakeRepo)(nil)

func (r *StocktakeRepo) Create(ctx context.Context, st *stocktake.Stocktake) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder().Insert(stocktakesTable).SetMap(StructToMap(st)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return mapError(err, "insert stocktake")
		}
		return r.copyLines(ctx, st.ID, st.Lines)
	})
}

func (r *StocktakeRepo) copyLines(ctx context.Context, stocktakeID id.ID, lines []stocktake.Line) error {
	rows := make([][]any, 0, len(lines))
	for i := range lines {
		lines[i].StocktakeID = stocktakeID
		rows = append(rows, RowValues(&lines[i], lineColumns))
	}
	if _, err := r.txm.CopyRows(ctx, linesTable, lineColumns, rows); err != nil {
		return mapError(err, "copy stocktake lines")
	}
	return nil
}

func (r *StocktakeRepo) header(ctx context.Context, where squirrel.Sqlizer, forUpdate bool) (*stocktake.Stocktake, error) {
	q := r.builder().Select(stocktakeColumns...).From(stocktakesTable).Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var st stocktake.Stocktake
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &st, sql, args...); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *StocktakeRepo) load(ctx context.Context, where squirrel.Eq, forUpdate bool, notFound any) (*stocktake.Stocktake, error) {
	st, err := r.header(ctx, where, forUpdate)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stocktake", notFound)
		}
		return nil, fmt.Errorf("get stocktake: %w", err)
	}
	if st.Lines, err = r.lines(ctx, st.ID); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *StocktakeRepo) lines(ctx context.Context, stocktakeID id.ID) ([]stocktake.Line, error) {
	sql, args, err := r.builder().Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"stocktake_id": stocktakeID}).
		OrderBy("line_no", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var lines []stocktake.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list stocktake lines: %w", err)
	}
	return lines, nil
}

func (r *StocktakeRepo) GetByID(ctx context.Context, stocktakeID id.ID) (*stocktake.Stocktake, error) {
	return r.load(ctx, squirrel.Eq{"id": stocktakeID}, false, stocktakeID)
}

func (r *StocktakeRepo) GetForUpdate(ctx context.Context, stocktakeID id.ID) (*stocktake.Stocktake, error) {
	return r.load(ctx, squirrel.Eq{"id": stocktakeID}, true, stocktakeID)
}

func (r *StocktakeRepo) GetByPeriod(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	return r.load(ctx, squirrel.Eq{"period_id": periodID}, false, "period "+periodID.String())
}

func (r *StocktakeRepo) ListByHotel(ctx context.Context, hotelID id.ID) ([]stocktake.Stocktake, error) {
	sql, args, err := r.builder().Select(stocktakeColumns...).From(stocktakesTable).
		Where(squirrel.Eq{"hotel_id": hotelID}).
		OrderBy("start_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var list []stocktake.Stocktake
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, sql, args...); err != nil {
		return nil, fmt.Errorf("list stocktakes: %w", err)
	}
	return list, nil
}

func (r *StocktakeRepo) Update(ctx context.Context, st *stocktake.Stocktake) error {
	sql, args, err := r.builder().Update(stocktakesTable).
		Set("status", st.Status).
		Set("approved_at", st.ApprovedAt).
		Set("approved_by", st.ApprovedBy).
		Set("opening_stale", st.OpeningStale).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": st.ID, "version": st.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "update stocktake")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stocktake", st.ID)
	}
	st.Version++
	return nil
}

func (r *StocktakeRepo) GetLine(ctx context.Context, lineID id.ID) (*stocktake.Line, error) {
	sql, args, err := r.builder().Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"id": lineID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var l stocktake.Line
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stocktake_line", lineID)
		}
		return nil, fmt.Errorf("get line: %w", err)
	}
	return &l, nil
}

func (r *StocktakeRepo) SaveLine(ctx context.Context, line *stocktake.Line) error {
	values := StructToMap(line)
	for _, key := range []string{"id", "stocktake_id", "item_id", "line_no"} {
		delete(values, key)
	}
	sql, args, err := r.builder().Update(linesTable).
		SetMap(values).
		Where(squirrel.Eq{"id": line.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "update line")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stocktake_line", line.ID)
	}
	return nil
}

// SaveLines deletes the stocktake's lines and copies the new set in.
func (r *StocktakeRepo) SaveLines(ctx context.Context, stocktakeID id.ID, lines []stocktake.Line) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder().Delete(linesTable).
			Where(squirrel.Eq{"stocktake_id": stocktakeID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return mapError(err, "delete lines")
		}
		return r.copyLines(ctx, stocktakeID, lines)
	})
}
