package period

import (
	"context"
	"fmt"
	"time"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/core/validate"
	"barstock/pkg/logger"
)

// CreateInput is the request to open a new period.
type CreateInput struct {
	HotelID   id.ID     `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtefield=StartDate"`
}

// Service owns the period lifecycle.
type Service struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new period service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreatePeriod opens a new period after checking it overlaps none of the
// hotel's existing periods. The check and insert share one serializable transaction.
func (s *Service) CreatePeriod(ctx context.Context, in CreateInput) (*StockPeriod, error) {
	in.StartDate = DateOnly(in.StartDate)
	in.EndDate = DateOnly(in.EndDate)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	p := New(in.HotelID, in.StartDate, in.EndDate)
	p.CreatedAt = s.now().UTC()

	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ListByHotel(ctx, in.HotelID)
		if err != nil {
			return fmt.Errorf("list periods: %w", err)
		}
		for i := range existing {
			if existing[i].Overlaps(in.StartDate, in.EndDate) {
				return OverlapError(&existing[i], in.StartDate, in.EndDate)
			}
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(appctx.ForHotel(ctx, p.HotelID), "period created", "period_id", p.ID, "range", p.Label())
	return p, nil
}

// Get returns a period by id.
func (s *Service) Get(ctx context.Context, periodID id.ID) (*StockPeriod, error) {
	return s.repo.GetByID(ctx, periodID)
}

// List returns the hotel's periods in chronological order.
func (s *Service) List(ctx context.Context, hotelID id.ID) ([]StockPeriod, error) {
	periods, err := s.repo.ListByHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	SortByStart(periods)
	return periods, nil
}

// Neighbours returns the periods chronologically adjacent to p.
func (s *Service) Neighbours(ctx context.Context, p *StockPeriod) (prev, next *StockPeriod, err error) {
	periods, err := s.repo.ListByHotel(ctx, p.HotelID)
	if err != nil {
		return nil, nil, fmt.Errorf("list periods: %w", err)
	}
	prev, next = Neighbours(periods, p)
	return prev, next, nil
}

// Previous returns the period immediately before p, or nil.
func (s *Service) Previous(ctx context.Context, p *StockPeriod) (*StockPeriod, error) {
	prev, _, err := s.Neighbours(ctx, p)
	return prev, err
}

// Next returns the period immediately after p, or nil.
func (s *Service) Next(ctx context.Context, p *StockPeriod) (*StockPeriod, error) {
	_, next, err := s.Neighbours(ctx, p)
	return next, err
}

// CheckNoOverlap fails with a data integrity error when p collides with any
// other period of its hotel.
func (s *Service) CheckNoOverlap(ctx context.Context, p *StockPeriod) error {
	periods, err := s.repo.ListByHotel(ctx, p.HotelID)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}
	for i := range periods {
		other := &periods[i]
		if other.ID == p.ID {
			continue
		}
		if other.Overlaps(p.StartDate, p.EndDate) {
			return OverlapError(other, p.StartDate, p.EndDate).WithDetail("periodId", p.ID)
		}
	}
	return nil
}

// MarkClosed closes p. It must run inside the caller's transaction.
// Closing an already closed period is a no-op.
func (s *Service) MarkClosed(ctx context.Context, p *StockPeriod) error {
	if !p.Close(s.now(), appctx.GetUserID(ctx)) {
		return nil
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("close period: %w", err)
	}
	return nil
}

// MarkReopened reopens p. It must run inside the caller's transaction.
func (s *Service) MarkReopened(ctx context.Context, p *StockPeriod) error {
	if err := p.Reopen(s.now(), appctx.GetUserID(ctx)); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("reopen period: %w", err)
	}
	return nil
}

// LockForUpdate loads and row-locks a period inside the caller's transaction.
func (s *Service) LockForUpdate(ctx context.Context, periodID id.ID) (*StockPeriod, error) {
	p, err := s.repo.GetForUpdate(ctx, periodID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("lock period: %w", err)
	}
	return p, nil
}
