// Package closing turns an approved stocktake into the closing snapshots of
// its period, and reverses that when the period is reopened.
package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
	"barstock/pkg/logger"
)

// ReasonReopen is recorded on archives taken when a period is reopened.
const ReasonReopen = "period reopened"

// Service is the period transition service.
type Service struct {
	periods    *period.Service
	items      catalog.Repository
	snapshots  snapshot.Repository
	archives   snapshot.ArchiveRepository
	stocktakes stocktake.Repository
	txManager  tx.Manager
	calc       *valuation.Calculator
	now        func() time.Time
}

// NewService creates a new period transition service.
func NewService(
	periods *period.Service,
	items catalog.Repository,
	snapshots snapshot.Repository,
	archives snapshot.ArchiveRepository,
	stocktakes stocktake.Repository,
	txManager tx.Manager,
	calc *valuation.Calculator,
) *Service {
	if calc == nil {
		calc = valuation.NewCalculator(nil)
	}
	return &Service{
		periods:    periods,
		items:      items,
		snapshots:  snapshots,
		archives:   archives,
		stocktakes: stocktakes,
		txManager:  txManager,
		calc:       calc,
		now:        time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

var _ stocktake.PeriodCloser = (*Service)(nil)

// ClosePeriod writes one snapshot per line of the approved stocktake, drops
// snapshots of items no longer counted and closes the period. Running it
// again with the same stocktake rewrites identical rows.
func (s *Service) ClosePeriod(ctx context.Context, periodID id.ID, st *stocktake.Stocktake) (*stocktake.CloseResult, error) {
	if st == nil {
		return nil, apperror.NewValidation("stocktake is required")
	}

	var res *stocktake.CloseResult
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.closePeriod(ctx, periodID, st)
		return err
	})
	if err != nil {
		logger.Warn(ctx, "period close refused", "period_id", periodID, "stocktake_id", st.ID, "error", err)
		return nil, err
	}

	logger.Info(ctx, "period closed",
		"period_id", periodID,
		"stocktake_id", st.ID,
		"snapshots", res.Written,
		"deleted", res.Deleted,
		"value", valuation.Round(res.TotalValue).String())
	return res, nil
}

// CloseByPeriod re-runs the close for the period's approved stocktake.
func (s *Service) CloseByPeriod(ctx context.Context, periodID id.ID) (*stocktake.CloseResult, error) {
	st, err := s.stocktakes.GetByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	return s.ClosePeriod(ctx, periodID, st)
}

func (s *Service) closePeriod(ctx context.Context, periodID id.ID, st *stocktake.Stocktake) (*stocktake.CloseResult, error) {
	if st.Status != stocktake.StatusApproved {
		return nil, apperror.NewPrecondition(apperror.CodeNotApproved, "period can only be closed from an approved stocktake").
			WithDetail("stocktakeId", st.ID).
			WithDetail("status", st.Status)
	}

	p, err := s.periods.LockForUpdate(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := st.MatchesPeriod(p); err != nil {
		return nil, err
	}
	if err := s.periods.CheckNoOverlap(ctx, p); err != nil {
		return nil, err
	}
	if err := s.checkLineSet(ctx, p, st); err != nil {
		return nil, err
	}

	res := &stocktake.CloseResult{PeriodID: p.ID, TotalValue: decimal.Zero}

	prev, _, err := s.periods.Neighbours(ctx, p)
	if err != nil {
		return nil, err
	}
	if prev != nil && !prev.IsClosed {
		res.Warnings.Add(apperror.NewWarning(apperror.WarnPreviousOpen,
			"closing %s while previous period %s is open", p.Label(), prev.Label()).
			With("periodId", prev.ID))
	}

	existing, err := s.snapshots.ListByPeriod(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	existingByItem := snapshot.ByItem(existing)

	snaps := make([]snapshot.StockSnapshot, 0, len(st.Lines))
	for i := range st.Lines {
		l := &st.Lines[i]
		if !l.Counted {
			return nil, apperror.NewPrecondition(apperror.CodeLineNotCounted,
				fmt.Sprintf("line %d (%s) is not counted", l.LineNo, l.ItemName)).
				WithDetail("lineNo", l.LineNo)
		}
		value, err := l.CountedValue(s.calc)
		if err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				ae.WithDetail("lineNo", l.LineNo).WithDetail("itemId", l.ItemID)
			}
			return nil, err
		}

		snapID := id.New()
		if prior, ok := existingByItem[l.ItemID]; ok {
			snapID = prior.ID
		}
		snaps = append(snaps, snapshot.StockSnapshot{
			ID:                  snapID,
			HotelID:             p.HotelID,
			PeriodID:            p.ID,
			ItemID:              l.ItemID,
			StocktakeID:         st.ID,
			CategoryCode:        l.CategoryCode,
			Subcategory:         l.Subcategory,
			ClosingFullUnits:    l.CountedFullUnits,
			ClosingPartialUnits: l.CountedPartialUnits,
			UnitCost:            l.ValuationUnitCost,
			UOM:                 l.ValuationUOM,
			ClosingStockValue:   value,
		})
		res.TotalValue = res.TotalValue.Add(value)
	}

	if err := s.snapshots.Upsert(ctx, snaps); err != nil {
		return nil, fmt.Errorf("write snapshots: %w", err)
	}
	res.Written = len(snaps)

	if res.Deleted, err = s.snapshots.DeleteExcept(ctx, p.ID, st.ItemIDs()); err != nil {
		return nil, fmt.Errorf("prune snapshots: %w", err)
	}

	if err := s.periods.MarkClosed(ctx, p); err != nil {
		return nil, err
	}

	written, err := s.snapshots.ListByPeriod(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("verify snapshots: %w", err)
	}
	if got := snapshot.TotalValue(written); len(written) != len(snaps) || !got.Equal(res.TotalValue) {
		return nil, apperror.NewDataIntegrity(apperror.CodeSnapshotValueDrift,
			fmt.Sprintf("snapshots of %s hold %s across %d rows, stocktake counted %s across %d lines",
				p.Label(), got.String(), len(written), res.TotalValue.String(), len(snaps))).
			WithDetail("periodId", p.ID)
	}

	return res, nil
}

// checkLineSet verifies the stocktake counts exactly the hotel's active items.
func (s *Service) checkLineSet(ctx context.Context, p *period.StockPeriod, st *stocktake.Stocktake) error {
	active, err := s.items.ListActiveItems(ctx, p.HotelID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	activeIDs := make(id.Set, len(active))
	for i := range active {
		activeIDs[active[i].ID] = struct{}{}
	}

	seen := make(id.Set, len(st.Lines))
	var strangers []id.ID
	for i := range st.Lines {
		itemID := st.Lines[i].ItemID
		if seen.Has(itemID) {
			return apperror.NewDataIntegrity("", "stocktake counts the same item twice").
				WithDetail("itemId", itemID)
		}
		seen[itemID] = struct{}{}
		if !activeIDs.Has(itemID) {
			strangers = append(strangers, itemID)
		}
	}

	if len(strangers) > 0 {
		found, err := s.items.ListItems(ctx, strangers)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		known := make(map[id.ID]*catalog.StockItem, len(found))
		for i := range found {
			known[found[i].ID] = &found[i]
		}
		for _, itemID := range strangers {
			item, ok := known[itemID]
			switch {
			case !ok:
				return apperror.NewDataIntegrity(apperror.CodeUnknownItem, "stocktake line references an unknown stock item").
					WithDetail("itemId", itemID)
			case item.HotelID != p.HotelID:
				return apperror.NewDataIntegrity(apperror.CodeHotelMismatch, "stocktake line references another hotel's item").
					WithDetail("itemId", itemID)
			default:
				return apperror.NewPrecondition(apperror.CodeInactiveItemOnLine,
					fmt.Sprintf("%s is no longer active; sync the stocktake items", item.Label())).
					WithDetail("itemId", itemID)
			}
		}
	}

	var missing []string
	for i := range active {
		if !seen.Has(active[i].ID) {
			missing = append(missing, active[i].Label())
		}
	}
	if len(missing) > 0 {
		return apperror.NewPrecondition(apperror.CodeIncompleteLines,
			fmt.Sprintf("stocktake is missing %d active items", len(missing))).
			WithDetail("items", missing)
	}
	return nil
}

// ReopenPeriod archives and invalidates the period's snapshots, reopens it and
// flags the next period's stocktake so its openings are re-read. It is refused
// while the next period is closed.
func (s *Service) ReopenPeriod(ctx context.Context, periodID id.ID) error {
	var archived int
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		p, err := s.periods.LockForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if !p.IsClosed {
			return apperror.NewPrecondition(apperror.CodePeriodNotClosed,
				fmt.Sprintf("period %s is not closed", p.Label())).
				WithDetail("periodId", p.ID)
		}

		_, next, err := s.periods.Neighbours(ctx, p)
		if err != nil {
			return err
		}
		if next != nil && next.IsClosed {
			return apperror.NewPrecondition(apperror.CodeNextPeriodClosed,
				fmt.Sprintf("period %s cannot be reopened while %s is closed", p.Label(), next.Label())).
				WithDetail("periodId", p.ID).
				WithDetail("nextPeriodId", next.ID)
		}

		snaps, err := s.snapshots.ListByPeriod(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		if len(snaps) > 0 {
			archive := &snapshot.Archive{
				ID:         id.New(),
				HotelID:    p.HotelID,
				PeriodID:   p.ID,
				Reason:     ReasonReopen,
				ArchivedAt: s.now().UTC(),
				ArchivedBy: appctx.GetUserID(ctx),
				Snapshots:  snaps,
			}
			if err := s.archives.Save(ctx, archive); err != nil {
				return fmt.Errorf("archive snapshots: %w", err)
			}
			if err := s.snapshots.MarkStale(ctx, p.ID, true); err != nil {
				return fmt.Errorf("invalidate snapshots: %w", err)
			}
			archived = len(snaps)
		}

		if err := s.periods.MarkReopened(ctx, p); err != nil {
			return err
		}

		if next == nil {
			return nil
		}
		nextSt, err := s.stocktakes.GetByPeriod(ctx, next.ID)
		if apperror.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find next stocktake: %w", err)
		}
		if nextSt.OpeningStale {
			return nil
		}
		nextSt.OpeningStale = true
		return s.stocktakes.Update(ctx, nextSt)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "period reopened", "period_id", periodID, "archived_snapshots", archived)
	return nil
}
