// Package integrity audits persisted reconciliation data for the
// inconsistencies the engine is meant to prevent.
package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

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

// Finding codes.
const (
	FindingPeriodOverlap         = "PERIOD_OVERLAP"
	FindingPeriodMismatch        = "STOCKTAKE_PERIOD_MISMATCH"
	FindingClosedWithoutApproval = "CLOSED_WITHOUT_APPROVAL"
	FindingApprovedNotClosed     = "APPROVED_NOT_CLOSED"
	FindingChainBreak            = "CHAIN_BREAK"
	FindingSnapshotValue         = "SNAPSHOT_VALUE_MISMATCH"
	FindingInvalidUOM            = "INVALID_UOM"
	FindingStaleSnapshot         = "STALE_SNAPSHOT"
)

// Finding is one inconsistency.
type Finding struct {
	Code     string         `json:"code"`
	HotelID  id.ID          `json:"hotelId"`
	PeriodID *id.ID         `json:"periodId,omitempty"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Report is the result of checking one hotel.
type Report struct {
	HotelID   id.ID     `json:"hotelId"`
	CheckedAt time.Time `json:"checkedAt"`
	Findings  []Finding `json:"findings"`
}

// Clean reports whether nothing was found.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

func (r *Report) add(code string, periodID *id.ID, format string, args ...any) *Finding {
	r.Findings = append(r.Findings, Finding{
		Code:     code,
		HotelID:  r.HotelID,
		PeriodID: periodID,
		Message:  fmt.Sprintf(format, args...),
	})
	return &r.Findings[len(r.Findings)-1]
}

func (f *Finding) with(key string, value any) *Finding {
	if f.Details == nil {
		f.Details = make(map[string]any)
	}
	f.Details[key] = value
	return f
}

// Checker runs the audit.
type Checker struct {
	periods     period.Repository
	stocktakes  stocktake.Repository
	snapshots   snapshot.Repository
	items       catalog.Repository
	txManager   tx.Manager
	calc        *valuation.Calculator
	concurrency int
	now         func() time.Time
}

// NewChecker creates a checker. concurrency bounds how many hotels are
// checked at once.
func NewChecker(
	periods period.Repository,
	stocktakes stocktake.Repository,
	snapshots snapshot.Repository,
	items catalog.Repository,
	txManager tx.Manager,
	calc *valuation.Calculator,
	concurrency int,
) *Checker {
	if calc == nil {
		calc = valuation.NewCalculator(nil)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Checker{
		periods:     periods,
		stocktakes:  stocktakes,
		snapshots:   snapshots,
		items:       items,
		txManager:   txManager,
		calc:        calc,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// CheckAll checks every hotel that has periods.
func (c *Checker) CheckAll(ctx context.Context) ([]Report, error) {
	hotels, err := c.periods.ListHotels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}
	return c.CheckHotels(ctx, hotels)
}

// CheckHotels checks hotels concurrently. Reports keep the input order.
func (c *Checker) CheckHotels(ctx context.Context, hotelIDs []id.ID) ([]Report, error) {
	reports := make([]Report, len(hotelIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, hotelID := range hotelIDs {
		i, hotelID := i, hotelID
		g.Go(func() error {
			r, err := c.CheckHotel(ctx, hotelID)
			if err != nil {
				return fmt.Errorf("hotel %s: %w", hotelID, err)
			}
			reports[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// CheckHotel audits one hotel inside a read-only transaction.
func (c *Checker) CheckHotel(ctx context.Context, hotelID id.ID) (*Report, error) {
	r := &Report{HotelID: hotelID, CheckedAt: c.now().UTC(), Findings: []Finding{}}

	err := c.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		periods, err := c.periods.ListByHotel(ctx, hotelID)
		if err != nil {
			return fmt.Errorf("list periods: %w", err)
		}
		period.SortByStart(periods)

		c.checkOverlaps(r, periods)

		if err := c.checkItems(ctx, r); err != nil {
			return err
		}

		byPeriod, err := c.checkStocktakes(ctx, r, periods)
		if err != nil {
			return err
		}

		for i := range periods {
			p := &periods[i]
			if !p.IsClosed {
				continue
			}
			if err := c.checkSnapshots(ctx, r, p, byPeriod[p.ID]); err != nil {
				return err
			}
		}

		for i := 1; i < len(periods); i++ {
			if err := c.checkChain(ctx, r, &periods[i-1], &periods[i], byPeriod[periods[i].ID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !r.Clean() {
		logger.Warn(appctx.ForHotel(ctx, hotelID), "integrity findings", "count", len(r.Findings))
	}
	return r, nil
}

func (c *Checker) checkOverlaps(r *Report, periods []period.StockPeriod) {
	for _, o := range period.FindOverlaps(periods) {
		pid := o.Second.ID
		r.add(FindingPeriodOverlap, &pid, "period %s overlaps %s", o.Second.Label(), o.First.Label()).
			with("otherPeriodId", o.First.ID)
	}
}

func (c *Checker) checkItems(ctx context.Context, r *Report) error {
	items, err := c.items.ListActiveItems(ctx, r.HotelID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	for i := range items {
		if _, err := c.calc.Rules().ForItem(&items[i]); err != nil {
			r.add(FindingInvalidUOM, nil, "item %s cannot be converted: %v", items[i].Label(), err).
				with("itemId", items[i].ID)
		}
	}
	return nil
}

// checkStocktakes pairs stocktakes with periods and returns them keyed by period.
func (c *Checker) checkStocktakes(ctx context.Context, r *Report, periods []period.StockPeriod) (map[id.ID]*stocktake.Stocktake, error) {
	headers, err := c.stocktakes.ListByHotel(ctx, r.HotelID)
	if err != nil {
		return nil, fmt.Errorf("list stocktakes: %w", err)
	}

	periodByID := make(map[id.ID]*period.StockPeriod, len(periods))
	for i := range periods {
		periodByID[periods[i].ID] = &periods[i]
	}

	byPeriod := make(map[id.ID]*stocktake.Stocktake, len(headers))
	for i := range headers {
		st := &headers[i]
		p, ok := periodByID[st.PeriodID]
		if !ok {
			r.add(FindingPeriodMismatch, nil, "stocktake %s points at a missing period", st.ID).
				with("stocktakeId", st.ID)
			continue
		}
		pid := p.ID
		if err := st.MatchesPeriod(p); err != nil {
			r.add(FindingPeriodMismatch, &pid, "%s", messageOf(err)).with("stocktakeId", st.ID)
		}
		if prior, dup := byPeriod[p.ID]; dup {
			r.add(FindingPeriodMismatch, &pid, "period %s has two stocktakes", p.Label()).
				with("stocktakeId", st.ID).with("otherStocktakeId", prior.ID)
			continue
		}
		byPeriod[p.ID] = st

		if st.Status == stocktake.StatusApproved && !p.IsClosed {
			r.add(FindingApprovedNotClosed, &pid, "stocktake of %s is approved but the period is open", p.Label()).
				with("stocktakeId", st.ID)
		}
	}

	for i := range periods {
		p := &periods[i]
		if !p.IsClosed {
			continue
		}
		pid := p.ID
		st, ok := byPeriod[p.ID]
		if !ok {
			r.add(FindingClosedWithoutApproval, &pid, "period %s is closed without a stocktake", p.Label())
			continue
		}
		if st.Status != stocktake.StatusApproved {
			r.add(FindingClosedWithoutApproval, &pid, "period %s is closed but its stocktake is %s", p.Label(), st.Status).
				with("stocktakeId", st.ID)
		}
	}
	return byPeriod, nil
}

func (c *Checker) checkSnapshots(ctx context.Context, r *Report, p *period.StockPeriod, header *stocktake.Stocktake) error {
	pid := p.ID
	snaps, err := c.snapshots.ListByPeriod(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	for i := range snaps {
		s := &snaps[i]
		if s.Stale {
			r.add(FindingStaleSnapshot, &pid, "snapshot of item %s in closed period %s is stale", s.ItemID, p.Label()).
				with("itemId", s.ItemID)
		}
		value, err := c.calc.CountValue(s.CategoryCode, s.Subcategory, s.ClosingFullUnits, s.ClosingPartialUnits, s.Basis())
		if err != nil {
			r.add(FindingInvalidUOM, &pid, "snapshot of item %s cannot be valued: %v", s.ItemID, err).
				with("itemId", s.ItemID)
			continue
		}
		if !value.Equal(s.ClosingStockValue) {
			r.add(FindingSnapshotValue, &pid, "snapshot of item %s stores %s but its count is worth %s",
				s.ItemID, s.ClosingStockValue.String(), value.String()).
				with("itemId", s.ItemID)
		}
	}

	if header == nil {
		return nil
	}
	st, err := c.stocktakes.GetByID(ctx, header.ID)
	if err != nil {
		return fmt.Errorf("load stocktake: %w", err)
	}
	counted, err := countedTotal(st, c.calc)
	if err != nil {
		r.add(FindingInvalidUOM, &pid, "stocktake of %s cannot be valued: %v", p.Label(), err)
		return nil
	}
	if stored := snapshot.TotalValue(snaps); !stored.Equal(counted) {
		r.add(FindingSnapshotValue, &pid, "snapshots of %s total %s but the stocktake counted %s",
			p.Label(), valuation.Round(stored), valuation.Round(counted)).
			with("stocktakeId", st.ID)
	}
	return nil
}

func (c *Checker) checkChain(ctx context.Context, r *Report, prev, cur *period.StockPeriod, header *stocktake.Stocktake) error {
	if header == nil || header.OpeningStale || !prev.IsClosed {
		return nil
	}
	st, err := c.stocktakes.GetByID(ctx, header.ID)
	if err != nil {
		return fmt.Errorf("load stocktake: %w", err)
	}
	snaps, err := c.snapshots.ListByPeriod(ctx, prev.ID)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	byItem := snapshot.ByItem(snaps)

	pid := cur.ID
	for i := range st.Lines {
		l := &st.Lines[i]
		want := decimal.Zero
		if s, ok := byItem[l.ItemID]; ok && !s.Stale {
			if want, err = s.TotalServings(c.calc.Rules()); err != nil {
				continue
			}
		}
		if !l.OpeningQty.Equal(want) {
			r.add(FindingChainBreak, &pid, "line %d (%s) opens at %s but %s closed at %s",
				l.LineNo, l.ItemName, l.OpeningQty.String(), prev.Label(), want.String()).
				with("itemId", l.ItemID).with("stocktakeId", st.ID)
		}
	}
	return nil
}

func countedTotal(st *stocktake.Stocktake, calc *valuation.Calculator) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range st.Lines {
		v, err := st.Lines[i].CountedValue(calc)
		if err != nil {
			return total, err
		}
		total = total.Add(v)
	}
	return total, nil
}

func messageOf(err error) string {
	if ae, ok := apperror.AsAppError(err); ok {
		return ae.Message
	}
	return err.Error()
}
