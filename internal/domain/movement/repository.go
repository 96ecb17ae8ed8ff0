package movement

import (
	"context"

	"barstock/internal/core/id"
)

// Repository stores movements. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, m *StockMovement) error
	// ListByPeriod returns the period's movements ordered by occurred_at.
	ListByPeriod(ctx context.Context, periodID id.ID) ([]StockMovement, error)
	// TotalsByPeriod sums the period's movements per item.
	TotalsByPeriod(ctx context.Context, periodID id.ID) (map[id.ID]Totals, error)
}
