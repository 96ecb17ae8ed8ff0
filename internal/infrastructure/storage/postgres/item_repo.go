package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
)

const itemsTable = "stock_items"

var itemColumns = ExtractDBColumns[catalog.StockItem]()

// ItemRepo implements catalog.Repository.
type ItemRepo struct{ base }

var _ catalog.Repository = (*ItemRepo)(nil)

func (r *ItemRepo) selectItems() squirrel.SelectBuilder {
	return r.builder().Select(itemColumns...).From(itemsTable)
}

func (r *ItemRepo) GetItem(ctx context.Context, itemID id.ID) (*catalog.StockItem, error) {
	sql, args, err := r.selectItems().Where(squirrel.Eq{"id": itemID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var item catalog.StockItem
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_item", itemID)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// ListActiveItems orders by the fixed category order, then name.
func (r *ItemRepo) ListActiveItems(ctx context.Context, hotelID id.ID) ([]catalog.StockItem, error) {
	sql, args, err := r.selectItems().
		Where(squirrel.Eq{"hotel_id": hotelID, "active": true}).
		OrderBy("array_position(ARRAY['D','B','S','W','M'], category_code)", "lower(name)", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []catalog.StockItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) ListItems(ctx context.Context, itemIDs []id.ID) ([]catalog.StockItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	sql, args, err := r.selectItems().Where(squirrel.Eq{"id": itemIDs}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []catalog.StockItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Put inserts or replaces items. Item maintenance belongs to the hotel's
// catalog system; seeding and tests use this.
func (r *ItemRepo) Put(ctx context.Context, items ...catalog.StockItem) error {
	for _, it := range items {
		it.Subcategory = it.Subcategory.Normalize()
		data := StructToMap(it)
		q := r.builder().Insert(itemsTable).SetMap(data).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				category_code = EXCLUDED.category_code, subcategory = EXCLUDED.subcategory,
				sku = EXCLUDED.sku, name = EXCLUDED.name, unit_cost = EXCLUDED.unit_cost,
				uom = EXCLUDED.uom, size_ml = EXCLUDED.size_ml, active = EXCLUDED.active`)
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return mapError(err, "put item")
		}
	}
	return nil
}
