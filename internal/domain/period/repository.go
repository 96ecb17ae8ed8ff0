package period

import (
	"context"

	"barstock/internal/core/id"
)

// Repository persists periods.
type Repository interface {
	Create(ctx context.Context, p *StockPeriod) error
	GetByID(ctx context.Context, periodID id.ID) (*StockPeriod, error)
	// GetForUpdate loads the period and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, periodID id.ID) (*StockPeriod, error)
	// ListByHotel returns the hotel's periods ordered by start date.
	ListByHotel(ctx context.Context, hotelID id.ID) ([]StockPeriod, error)
	// Update saves lifecycle fields, checking and bumping Version.
	Update(ctx context.Context, p *StockPeriod) error
	// ListHotels returns every hotel that owns at least one period.
	ListHotels(ctx context.Context) ([]id.ID, error)
}
