package catalog

import (
	"context"

	"barstock/internal/core/id"
)

// Repository is the read-only view of item maintenance.
type Repository interface {
	// GetItem returns an item regardless of its active flag.
	GetItem(ctx context.Context, itemID id.ID) (*StockItem, error)

	// ListActiveItems returns the hotel's active items ordered by category, then name.
	ListActiveItems(ctx context.Context, hotelID id.ID) ([]StockItem, error)

	// ListItems returns items by id; unknown ids are simply absent from the result.
	ListItems(ctx context.Context, itemIDs []id.ID) ([]StockItem, error)
}
