package stocktake

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/lock"
	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/valuation"
	"barstock/pkg/logger"
)

// DefaultLockTTL bounds how long an approval or reopen may hold its lock.
const DefaultLockTTL = 2 * time.Minute

// Deps are the collaborators of Service.
type Deps struct {
	Repo      Repository
	Items     catalog.Repository
	Periods   *period.Service
	Snapshots snapshot.Repository
	Movements movement.Repository
	Closer    PeriodCloser
	Locker    lock.Locker
	TxManager tx.Manager
	Calc      *valuation.Calculator
}

// Service provides the stocktake operations.
type Service struct {
	Deps
	collapseRatio decimal.Decimal
	lockTTL       time.Duration
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCollapseRatio sets the category collapse threshold.
func WithCollapseRatio(r decimal.Decimal) Option {
	return func(s *Service) { s.collapseRatio = r }
}

// WithLockTTL sets the approval lock lifetime.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithNow overrides the clock for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new stocktake service.
func NewService(deps Deps, opts ...Option) *Service {
	if deps.Calc == nil {
		deps.Calc = valuation.NewCalculator(nil)
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	s := &Service{
		Deps:          deps,
		collapseRatio: DefaultCollapseRatio,
		lockTTL:       DefaultLockTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult is a new stocktake and the warnings raised while building it.
type CreateResult struct {
	Stocktake *Stocktake        `json:"stocktake"`
	Warnings  apperror.Warnings `json:"warnings,omitempty"`
}

// CountResult is a counted line and its derived figures.
type CountResult struct {
	Line     *Line             `json:"line"`
	Figures  Figures           `json:"figures"`
	Warnings apperror.Warnings `json:"warnings,omitempty"`
}

// ApproveResult is an approved stocktake and what closing its period wrote.
type ApproveResult struct {
	Stocktake *Stocktake        `json:"stocktake"`
	Close     *CloseResult      `json:"close"`
	Totals    *Totals           `json:"totals"`
	Warnings  apperror.Warnings `json:"warnings,omitempty"`
}

// CreateForPeriod builds the draft count sheet of an open period: one line per
// active item, openings from the previous period's snapshots and movement totals.
func (s *Service) CreateForPeriod(ctx context.Context, periodID id.ID) (*CreateResult, error) {
	var res CreateResult

	err := s.TxManager.RunSerializable(ctx, func(ctx context.Context) error {
		p, err := s.Periods.LockForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.CheckOpen(); err != nil {
			return err
		}

		existing, err := s.Repo.GetByPeriod(ctx, p.ID)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("find stocktake: %w", err)
		}
		if existing != nil {
			return apperror.NewPrecondition(apperror.CodeStocktakeExists, "period already has a stocktake").
				WithDetail("periodId", p.ID).
				WithDetail("stocktakeId", existing.ID)
		}

		items, err := s.Items.ListActiveItems(ctx, p.HotelID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}

		st := New(p)
		st.CreatedAt = s.now().UTC()
		for i := range items {
			if _, err := s.Calc.Rules().ForItem(&items[i]); err != nil {
				return err
			}
			st.Lines = append(st.Lines, NewLine(st.ID, 0, &items[i]))
		}
		SortLines(st.Lines)

		ws, err := s.applyOpenings(ctx, p, st)
		if err != nil {
			return err
		}
		res.Warnings.Add(ws...)

		if err := s.applyMovements(ctx, st); err != nil {
			return err
		}

		if err := s.Repo.Create(ctx, st); err != nil {
			return fmt.Errorf("create stocktake: %w", err)
		}
		res.Stocktake = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logWarnings(ctx, res.Stocktake.ID, res.Warnings)
	logger.Info(ctx, "stocktake created",
		"stocktake_id", res.Stocktake.ID,
		"period_id", res.Stocktake.PeriodID,
		"lines", len(res.Stocktake.Lines))
	return &res, nil
}

// applyOpenings sets every line's opening from the previous period's snapshots.
func (s *Service) applyOpenings(ctx context.Context, p *period.StockPeriod, st *Stocktake) (apperror.Warnings, error) {
	var ws apperror.Warnings

	prev, err := s.Periods.Previous(ctx, p)
	if err != nil {
		return nil, err
	}

	st.OpeningStale = false
	if prev == nil {
		for i := range st.Lines {
			st.Lines[i].SetOpening(decimal.Zero, OpeningNone)
		}
		logger.Info(ctx, "no previous period; openings are zero", "period_id", p.ID)
		return ws, nil
	}

	if !prev.IsClosed {
		st.OpeningStale = true
		ws.Add(apperror.NewWarning(apperror.WarnPreviousOpen,
			"previous period %s is not closed; openings must be refreshed after it closes", prev.Label()).
			With("periodId", prev.ID))
	}

	snaps, err := s.Snapshots.ListByPeriod(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("list previous snapshots: %w", err)
	}
	byItem := snapshot.ByItem(snaps)

	for i := range st.Lines {
		l := &st.Lines[i]
		snap, ok := byItem[l.ItemID]
		if !ok || snap.Stale {
			l.SetOpening(decimal.Zero, OpeningNone)
			if prev.IsClosed {
				ws.Add(apperror.NewWarning(apperror.WarnMissingOpening,
					"%s has no closing snapshot in %s; opening is zero", l.ItemName, prev.Label()).
					With("itemId", l.ItemID).With("lineNo", l.LineNo))
			}
			continue
		}
		qty, err := snap.TotalServings(s.Calc.Rules())
		if err != nil {
			return nil, err
		}
		l.SetOpening(qty, OpeningFromSnapshot)
	}
	return ws, nil
}

func (s *Service) applyMovements(ctx context.Context, st *Stocktake) error {
	totals, err := s.Movements.TotalsByPeriod(ctx, st.PeriodID)
	if err != nil {
		return fmt.Errorf("movement totals: %w", err)
	}
	for i := range st.Lines {
		st.Lines[i].ApplyMovements(totals[st.Lines[i].ItemID])
	}
	return nil
}

// RefreshMovements re-reads movement totals into a draft.
func (s *Service) RefreshMovements(ctx context.Context, stocktakeID id.ID) (*Stocktake, error) {
	var st *Stocktake
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if st, err = s.Repo.GetForUpdate(ctx, stocktakeID); err != nil {
			return err
		}
		if err := st.CheckDraft(); err != nil {
			return err
		}
		if err := s.applyMovements(ctx, st); err != nil {
			return err
		}
		if err := s.Repo.SaveLines(ctx, st.ID, st.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.Repo.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "stocktake movements refreshed", "stocktake_id", st.ID)
	return st, nil
}

// RefreshOpening re-reads openings from the previous period and clears the
// stale flag once that period is closed.
func (s *Service) RefreshOpening(ctx context.Context, stocktakeID id.ID) (*CreateResult, error) {
	var res CreateResult
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		st, err := s.Repo.GetForUpdate(ctx, stocktakeID)
		if err != nil {
			return err
		}
		if err := st.CheckDraft(); err != nil {
			return err
		}
		p, err := s.Periods.Get(ctx, st.PeriodID)
		if err != nil {
			return err
		}
		ws, err := s.applyOpenings(ctx, p, st)
		if err != nil {
			return err
		}
		res.Warnings = ws
		if err := s.Repo.SaveLines(ctx, st.ID, st.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.Repo.Update(ctx, st); err != nil {
			return err
		}
		res.Stocktake = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logWarnings(ctx, res.Stocktake.ID, res.Warnings)
	logger.Info(ctx, "stocktake openings refreshed",
		"stocktake_id", res.Stocktake.ID, "opening_stale", res.Stocktake.OpeningStale)
	return &res, nil
}

// SyncItems brings a draft's lines in line with the hotel's active items:
// lines of deactivated items are dropped and newly active items are added.
func (s *Service) SyncItems(ctx context.Context, stocktakeID id.ID) (*CreateResult, error) {
	var res CreateResult
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		st, err := s.Repo.GetForUpdate(ctx, stocktakeID)
		if err != nil {
			return err
		}
		if err := st.CheckDraft(); err != nil {
			return err
		}
		items, err := s.Items.ListActiveItems(ctx, st.HotelID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}

		active := make(map[id.ID]*catalog.StockItem, len(items))
		for i := range items {
			active[items[i].ID] = &items[i]
		}

		kept := st.Lines[:0]
		for _, l := range st.Lines {
			if _, ok := active[l.ItemID]; ok {
				kept = append(kept, l)
			}
		}
		st.Lines = kept

		var added []Line
		for i := range items {
			if st.LineByItem(items[i].ID) != nil {
				continue
			}
			if _, err := s.Calc.Rules().ForItem(&items[i]); err != nil {
				return err
			}
			added = append(added, NewLine(st.ID, 0, &items[i]))
		}
		if len(added) > 0 {
			p, err := s.Periods.Get(ctx, st.PeriodID)
			if err != nil {
				return err
			}
			fresh := &Stocktake{ID: st.ID, PeriodID: st.PeriodID, Lines: added}
			ws, err := s.applyOpenings(ctx, p, fresh)
			if err != nil {
				return err
			}
			res.Warnings.Add(ws...)
			if err := s.applyMovements(ctx, fresh); err != nil {
				return err
			}
			st.Lines = append(st.Lines, fresh.Lines...)
		}
		SortLines(st.Lines)

		if err := s.Repo.SaveLines(ctx, st.ID, st.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.Repo.Update(ctx, st); err != nil {
			return err
		}
		res.Stocktake = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "stocktake items synced", "stocktake_id", res.Stocktake.ID, "lines", len(res.Stocktake.Lines))
	return &res, nil
}

// SetCountedUnits records a physical count on a draft line.
func (s *Service) SetCountedUnits(ctx context.Context, lineID id.ID, full, partial decimal.Decimal) (*CountResult, error) {
	return s.count(ctx, lineID, func(*catalog.StockItem) (decimal.Decimal, decimal.Decimal, error) {
		return full, partial, nil
	})
}

// SetCountedBottles records a syrup count entered as bottles.fraction, e.g. 10.5.
func (s *Service) SetCountedBottles(ctx context.Context, lineID id.ID, bottles decimal.Decimal) (*CountResult, error) {
	return s.count(ctx, lineID, func(item *catalog.StockItem) (decimal.Decimal, decimal.Decimal, error) {
		return s.Calc.Rules().SplitBottles(item, bottles)
	})
}

type countFunc func(item *catalog.StockItem) (full, partial decimal.Decimal, err error)

func (s *Service) count(ctx context.Context, lineID id.ID, fn countFunc) (*CountResult, error) {
	var res CountResult
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		line, err := s.Repo.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		st, err := s.Repo.GetForUpdate(ctx, line.StocktakeID)
		if err != nil {
			return err
		}
		if err := st.CheckDraft(); err != nil {
			return err
		}

		item, err := s.Items.GetItem(ctx, line.ItemID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewDataIntegrity(apperror.CodeUnknownItem, "line references an unknown stock item").
					WithDetail("itemId", line.ItemID).
					WithDetail("lineId", line.ID)
			}
			return fmt.Errorf("get item: %w", err)
		}
		strategy, err := s.Calc.Rules().ForItem(item)
		if err != nil {
			return err
		}

		full, partial, err := fn(item)
		if err != nil {
			return err
		}
		if err := strategy.ValidateCount(full, partial, item.UOM); err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				ae.WithDetail("lineNo", line.LineNo)
			}
			return err
		}

		line.ItemName = item.Name
		line.CategoryCode = item.CategoryCode
		line.Subcategory = item.Subcategory.Normalize()
		basis := valuation.BasisOf(item)
		line.SetCount(full, partial, basis, s.now(), appctx.GetUserID(ctx))

		if res.Figures, err = line.Figures(s.Calc); err != nil {
			return err
		}
		if err := s.Repo.SaveLine(ctx, line); err != nil {
			return fmt.Errorf("save line: %w", err)
		}

		res.Line = line
		res.Warnings.Add(valuation.Warnings(item, basis)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "line counted",
		"line_id", res.Line.ID,
		"full", res.Line.CountedFullUnits.String(),
		"partial", res.Line.CountedPartialUnits.String())
	return &res, nil
}

func approvalKey(stocktakeID id.ID) string {
	return "stocktake:" + stocktakeID.String() + ":approve"
}

// Approve freezes a fully counted draft and closes its period in one
// serializable transaction. Any failure leaves both untouched.
func (s *Service) Approve(ctx context.Context, stocktakeID id.ID) (*ApproveResult, error) {
	release, err := s.Locker.Acquire(ctx, approvalKey(stocktakeID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release approval lock", "stocktake_id", stocktakeID, "error", err)
		}
	}()

	var res ApproveResult
	err = s.TxManager.RunSerializable(ctx, func(ctx context.Context) error {
		st, err := s.Repo.GetForUpdate(ctx, stocktakeID)
		if err != nil {
			return err
		}
		if err := st.Approve(s.now(), appctx.GetUserID(ctx)); err != nil {
			return err
		}

		// Movements may have been recorded since the sheet was last refreshed.
		if err := s.applyMovements(ctx, st); err != nil {
			return err
		}
		if err := s.Repo.SaveLines(ctx, st.ID, st.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		totals, err := ComputeTotals(st, s.Calc, s.collapseRatio)
		if err != nil {
			return err
		}

		if err := s.Repo.Update(ctx, st); err != nil {
			return fmt.Errorf("approve stocktake: %w", err)
		}

		closeRes, err := s.Closer.ClosePeriod(ctx, st.PeriodID, st)
		if err != nil {
			return err
		}

		res.Stocktake = st
		res.Close = closeRes
		res.Totals = totals
		res.Warnings.Add(totals.Warnings...)
		res.Warnings.Add(closeRes.Warnings...)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "stocktake approval rejected", "stocktake_id", stocktakeID, "error", err)
		return nil, err
	}

	s.logWarnings(ctx, stocktakeID, res.Warnings)
	logger.Info(ctx, "stocktake approved",
		"stocktake_id", stocktakeID,
		"period_id", res.Stocktake.PeriodID,
		"snapshots", res.Close.Written,
		"stock_value", valuation.Round(res.Close.TotalValue).String(),
		"warnings", len(res.Warnings))
	return &res, nil
}

// Reopen returns an approved stocktake to draft and reopens its period.
// It is refused while the next period is closed.
func (s *Service) Reopen(ctx context.Context, stocktakeID id.ID) (*Stocktake, error) {
	release, err := s.Locker.Acquire(ctx, approvalKey(stocktakeID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release approval lock", "stocktake_id", stocktakeID, "error", err)
		}
	}()

	var st *Stocktake
	err = s.TxManager.RunSerializable(ctx, func(ctx context.Context) error {
		var err error
		if st, err = s.Repo.GetForUpdate(ctx, stocktakeID); err != nil {
			return err
		}
		if err := st.Reopen(); err != nil {
			return err
		}
		if err := s.Repo.Update(ctx, st); err != nil {
			return fmt.Errorf("reopen stocktake: %w", err)
		}
		return s.Closer.ReopenPeriod(ctx, st.PeriodID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stocktake reopened", "stocktake_id", st.ID, "period_id", st.PeriodID)
	return st, nil
}

// GetByID returns a stocktake with its lines.
func (s *Service) GetByID(ctx context.Context, stocktakeID id.ID) (*Stocktake, error) {
	var st *Stocktake
	err := s.TxManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		st, err = s.Repo.GetByID(ctx, stocktakeID)
		return err
	})
	return st, err
}

// GetByPeriod returns the stocktake of a period.
func (s *Service) GetByPeriod(ctx context.Context, periodID id.ID) (*Stocktake, error) {
	var st *Stocktake
	err := s.TxManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		st, err = s.Repo.GetByPeriod(ctx, periodID)
		return err
	})
	return st, err
}

// GetCategoryTotals returns per-category and grand totals at full precision.
func (s *Service) GetCategoryTotals(ctx context.Context, stocktakeID id.ID) (*Totals, error) {
	var totals *Totals
	err := s.TxManager.ReadOnly(ctx, func(ctx context.Context) error {
		st, err := s.Repo.GetByID(ctx, stocktakeID)
		if err != nil {
			return err
		}
		totals, err = ComputeTotals(st, s.Calc, s.collapseRatio)
		return err
	})
	return totals, err
}

func (s *Service) logWarnings(ctx context.Context, stocktakeID id.ID, ws apperror.Warnings) {
	for _, w := range ws {
		logger.Warn(ctx, w.Message, "stocktake_id", stocktakeID, "code", w.Code)
	}
}
