package stocktake

import (
	"context"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// Repository persists stocktakes and their lines.
type Repository interface {
	// Create inserts the header and all lines.
	Create(ctx context.Context, st *Stocktake) error

	// GetByID returns the stocktake with its lines.
	GetByID(ctx context.Context, stocktakeID id.ID) (*Stocktake, error)

	// GetForUpdate is GetByID with the header row locked until the transaction ends.
	GetForUpdate(ctx context.Context, stocktakeID id.ID) (*Stocktake, error)

	// GetByPeriod returns the period's stocktake with lines, or NotFound.
	GetByPeriod(ctx context.Context, periodID id.ID) (*Stocktake, error)

	// ListByHotel returns headers only, without lines.
	ListByHotel(ctx context.Context, hotelID id.ID) ([]Stocktake, error)

	// Update saves header fields, checking and bumping Version.
	Update(ctx context.Context, st *Stocktake) error

	// GetLine returns one line.
	GetLine(ctx context.Context, lineID id.ID) (*Line, error)

	// SaveLine updates one existing line.
	SaveLine(ctx context.Context, line *Line) error

	// SaveLines replaces the stocktake's line set: lines not in lines are
	// deleted, the rest are written.
	SaveLines(ctx context.Context, stocktakeID id.ID, lines []Line) error
}

// CloseResult reports what closing a period wrote.
type CloseResult struct {
	PeriodID   id.ID             `json:"periodId"`
	Written    int               `json:"written"`
	Deleted    int               `json:"deleted"`
	TotalValue decimal.Decimal   `json:"totalValue"`
	Warnings   apperror.Warnings `json:"warnings,omitempty"`
}

// PeriodCloser materializes snapshots for an approved stocktake and undoes that on reopen.
// Both calls run inside the caller's transaction.
type PeriodCloser interface {
	ClosePeriod(ctx context.Context, periodID id.ID, st *Stocktake) (*CloseResult, error)
	ReopenPeriod(ctx context.Context, periodID id.ID) error
}
