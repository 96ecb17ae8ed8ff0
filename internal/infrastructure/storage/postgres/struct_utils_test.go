package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"barstock/internal/core/id"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/stocktake"
)

func TestExtractDBColumnsSkipsUntagged(t *testing.T) {
	cols := ExtractDBColumns[stocktake.Stocktake]()

	assert.Contains(t, cols, "period_id")
	assert.Contains(t, cols, "opening_stale")
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "lines")
}

func TestStructToMapFlattensEmbedded(t *testing.T) {
	itemID := id.New()
	row := totalsRow{ItemID: itemID, Totals: movement.Totals{Purchases: decimal.NewFromInt(12)}}

	m := StructToMap(row)
	assert.Equal(t, itemID, m["item_id"])
	assert.Equal(t, decimal.NewFromInt(12), m["purchases"])
	assert.Contains(t, m, "adjustments")

	cols := ExtractDBColumns[totalsRow]()
	assert.Equal(t, "item_id", cols[0])
	values := RowValues(row, []string{"purchases", "item_id"})
	assert.Equal(t, []any{decimal.NewFromInt(12), itemID}, values)
}
