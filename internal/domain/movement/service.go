package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/core/validate"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/period"
	"barstock/pkg/logger"
)

// RecordInput is one stock event reported by the point of sale, purchasing or staff.
type RecordInput struct {
	HotelID    id.ID           `validate:"required"`
	ItemID     id.ID           `validate:"required"`
	PeriodID   id.ID           `validate:"required"`
	Type       Type            `validate:"required,oneof=PURCHASE SALE WASTE TRANSFER_IN TRANSFER_OUT ADJUSTMENT"`
	Quantity   decimal.Decimal `validate:"-"`
	UnitCost   decimal.Decimal `validate:"-"`
	OccurredAt time.Time       `validate:"required"`
	Note       string          `validate:"max=500"`
}

// Service records movements.
type Service struct {
	repo      Repository
	items     catalog.Repository
	periods   period.Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new movement service.
func NewService(repo Repository, items catalog.Repository, periods period.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		periods:   periods,
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

func checkQuantity(in *RecordInput) error {
	if in.Type.Signed() {
		if in.Quantity.IsZero() {
			return apperror.NewValidation("adjustment quantity cannot be zero").WithDetail("field", "Quantity")
		}
	} else if !in.Quantity.IsPositive() {
		return apperror.NewValidation(fmt.Sprintf("%s quantity must be positive", in.Type)).
			WithDetail("field", "Quantity")
	}
	if in.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "UnitCost")
	}
	return nil
}

// Record appends a movement after checking the item, hotel and period agree
// and the period is open.
func (s *Service) Record(ctx context.Context, in RecordInput) (*StockMovement, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := checkQuantity(&in); err != nil {
		return nil, err
	}

	m := &StockMovement{
		ID:         id.New(),
		HotelID:    in.HotelID,
		ItemID:     in.ItemID,
		PeriodID:   in.PeriodID,
		Type:       in.Type,
		Quantity:   in.Quantity,
		UnitCost:   in.UnitCost,
		OccurredAt: in.OccurredAt.UTC(),
		Note:       in.Note,
		CreatedBy:  appctx.GetUserID(ctx),
		CreatedAt:  s.now().UTC(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.items.GetItem(ctx, in.ItemID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewDataIntegrity(apperror.CodeUnknownItem, "movement references an unknown stock item").
					WithDetail("itemId", in.ItemID)
			}
			return fmt.Errorf("get item: %w", err)
		}
		if item.HotelID != in.HotelID {
			return apperror.NewDataIntegrity(apperror.CodeHotelMismatch, "stock item belongs to another hotel").
				WithDetail("itemId", item.ID)
		}

		p, err := s.periods.GetByID(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		if p.HotelID != in.HotelID {
			return apperror.NewDataIntegrity(apperror.CodeHotelMismatch, "period belongs to another hotel").
				WithDetail("periodId", p.ID)
		}
		if err := p.CheckOpen(); err != nil {
			return err
		}
		if !p.Contains(m.OccurredAt) {
			return apperror.NewDataIntegrity(apperror.CodeMovementOutOfPeriod,
				fmt.Sprintf("movement at %s is outside period %s", m.OccurredAt.Format(time.RFC3339), p.Label())).
				WithDetail("periodId", p.ID)
		}

		return s.repo.Append(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "movement recorded",
		"movement_id", m.ID, "item_id", m.ItemID, "type", m.Type, "quantity", m.Quantity.String())
	return m, nil
}

// ListByPeriod returns the period's movements.
func (s *Service) ListByPeriod(ctx context.Context, periodID id.ID) ([]StockMovement, error) {
	return s.repo.ListByPeriod(ctx, periodID)
}

// TotalsByPeriod returns per-item sums for the period.
func (s *Service) TotalsByPeriod(ctx context.Context, periodID id.ID) (map[id.ID]Totals, error) {
	return s.repo.TotalsByPeriod(ctx, periodID)
}
