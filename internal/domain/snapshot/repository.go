package snapshot

import (
	"context"

	"barstock/internal/core/id"
)

// Repository persists snapshots.
type Repository interface {
	// Upsert writes snapshots keyed by (hotel, period, item). An existing row
	// keeps its ID and is overwritten in place.
	Upsert(ctx context.Context, snaps []StockSnapshot) error

	// ListByPeriod returns the period's snapshots ordered by item.
	ListByPeriod(ctx context.Context, periodID id.ID) ([]StockSnapshot, error)

	// DeleteExcept removes the period's snapshots for items not in keep.
	DeleteExcept(ctx context.Context, periodID id.ID, keep []id.ID) (int, error)

	// MarkStale sets or clears the stale flag on every snapshot of the period.
	MarkStale(ctx context.Context, periodID id.ID, stale bool) error
}

// ArchiveRepository keeps invalidated snapshot sets.
type ArchiveRepository interface {
	Save(ctx context.Context, a *Archive) error
	ListByPeriod(ctx context.Context, periodID id.ID) ([]Archive, error)
}
