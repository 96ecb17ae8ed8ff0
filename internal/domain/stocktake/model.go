// Package stocktake provides the stocktake aggregate: one count sheet per
// period, its lines, and the DRAFT/APPROVED state machine.
package stocktake

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/period"
)

// Status represents the status of a stocktake.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
)

// Stocktake is the count sheet of one period.
type Stocktake struct {
	ID       id.ID `db:"id" json:"id"`
	HotelID  id.ID `db:"hotel_id" json:"hotelId"`
	PeriodID id.ID `db:"period_id" json:"periodId"`

	// Copied from the period; re-verified when the period closes.
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`

	Status     Status     `db:"status" json:"status"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy *string    `db:"approved_by" json:"approvedBy,omitempty"`

	// OpeningStale is set when the previous period changed after the
	// openings were read.
	OpeningStale bool `db:"opening_stale" json:"openingStale"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Lines []Line `db:"-" json:"lines"`
}

// New creates a draft stocktake for p.
func New(p *period.StockPeriod) *Stocktake {
	return &Stocktake{
		ID:        id.New(),
		HotelID:   p.HotelID,
		PeriodID:  p.ID,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Lines:     make([]Line, 0),
	}
}

// IsDraft reports whether lines may still change.
func (st *Stocktake) IsDraft() bool {
	return st.Status == StatusDraft
}

// CheckDraft fails unless the stocktake is a draft.
func (st *Stocktake) CheckDraft() error {
	if st.Status != StatusDraft {
		return apperror.NewPrecondition(apperror.CodeNotDraft, "stocktake is approved; reopen it before editing").
			WithDetail("stocktakeId", st.ID)
	}
	return nil
}

// Line returns the line with lineID.
func (st *Stocktake) Line(lineID id.ID) (*Line, error) {
	for i := range st.Lines {
		if st.Lines[i].ID == lineID {
			return &st.Lines[i], nil
		}
	}
	return nil, apperror.NewNotFound("stocktake line", lineID)
}

// LineByItem returns the line counting itemID, or nil.
func (st *Stocktake) LineByItem(itemID id.ID) *Line {
	for i := range st.Lines {
		if st.Lines[i].ItemID == itemID {
			return &st.Lines[i]
		}
	}
	return nil
}

// ItemIDs returns the items on the sheet in line order.
func (st *Stocktake) ItemIDs() []id.ID {
	out := make([]id.ID, len(st.Lines))
	for i := range st.Lines {
		out[i] = st.Lines[i].ItemID
	}
	return out
}

// Uncounted returns the line numbers nobody has counted yet.
func (st *Stocktake) Uncounted() []int {
	var out []int
	for i := range st.Lines {
		if !st.Lines[i].Counted {
			out = append(out, st.Lines[i].LineNo)
		}
	}
	return out
}

// CanApprove checks every approval precondition that depends only on the aggregate.
func (st *Stocktake) CanApprove() error {
	if st.Status == StatusApproved {
		return apperror.NewPrecondition(apperror.CodeAlreadyApproved, "stocktake is already approved").
			WithDetail("stocktakeId", st.ID)
	}
	if st.OpeningStale {
		return apperror.NewPrecondition(apperror.CodeOpeningStale,
			"previous period changed since openings were read; refresh openings before approving").
			WithDetail("stocktakeId", st.ID)
	}
	if len(st.Lines) == 0 {
		return apperror.NewPrecondition(apperror.CodeIncompleteLines, "stocktake has no lines").
			WithDetail("stocktakeId", st.ID)
	}
	if missing := st.Uncounted(); len(missing) > 0 {
		return apperror.NewPrecondition(apperror.CodeIncompleteLines,
			fmt.Sprintf("%d of %d lines are not counted", len(missing), len(st.Lines))).
			WithDetail("stocktakeId", st.ID).
			WithDetail("lineNos", joinInts(missing))
	}
	return nil
}

// Approve freezes the lines.
func (st *Stocktake) Approve(at time.Time, by string) error {
	if err := st.CanApprove(); err != nil {
		return err
	}
	at = at.UTC()
	st.Status = StatusApproved
	st.ApprovedAt = &at
	st.ApprovedBy = &by
	return nil
}

// Reopen returns an approved stocktake to draft.
func (st *Stocktake) Reopen() error {
	if st.Status != StatusApproved {
		return apperror.NewPrecondition(apperror.CodeNotApproved, "only an approved stocktake can be reopened").
			WithDetail("stocktakeId", st.ID)
	}
	st.Status = StatusDraft
	st.ApprovedAt = nil
	st.ApprovedBy = nil
	return nil
}

// MatchesPeriod fails with a data integrity error when the stocktake and p disagree
// on identity, hotel or date range.
func (st *Stocktake) MatchesPeriod(p *period.StockPeriod) error {
	mismatch := func(what string) error {
		return apperror.NewDataIntegrity(apperror.CodePeriodMismatch,
			fmt.Sprintf("stocktake %s does not match period %s: %s differs", st.ID, p.ID, what)).
			WithDetail("stocktakeId", st.ID).
			WithDetail("periodId", p.ID)
	}
	switch {
	case st.PeriodID != p.ID:
		return mismatch("period id")
	case st.HotelID != p.HotelID:
		return mismatch("hotel")
	case !p.SameRange(st.StartDate, st.EndDate):
		return mismatch("date range")
	}
	return nil
}

// SortLines orders lines by category, then item name, and renumbers them.
func SortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		ri, rj := lines[i].CategoryCode.Rank(), lines[j].CategoryCode.Rank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(lines[i].ItemName) < strings.ToLower(lines[j].ItemName)
	})
	for i := range lines {
		lines[i].LineNo = i + 1
	}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
