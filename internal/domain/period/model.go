// Package period manages the accounting windows stock is reconciled over.
package period

import (
	"fmt"
	"sort"
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// DateLayout is how period bounds are rendered.
const DateLayout = "2006-01-02"

// StockPeriod is one hotel's accounting window. Both bounds are inclusive dates.
type StockPeriod struct {
	ID        id.ID     `db:"id" json:"id"`
	HotelID   id.ID     `db:"hotel_id" json:"hotelId"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`

	IsClosed   bool       `db:"is_closed" json:"isClosed"`
	ClosedAt   *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy   *string    `db:"closed_by" json:"closedBy,omitempty"`
	ReopenedAt *time.Time `db:"reopened_at" json:"reopenedAt,omitempty"`
	ReopenedBy *string    `db:"reopened_by" json:"reopenedBy,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New creates an open period.
func New(hotelID id.ID, start, end time.Time) *StockPeriod {
	return &StockPeriod{
		ID:        id.New(),
		HotelID:   hotelID,
		StartDate: DateOnly(start),
		EndDate:   DateOnly(end),
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
}

// Label renders the range, e.g. 2024-01-01..2024-01-31.
func (p *StockPeriod) Label() string {
	return p.StartDate.Format(DateLayout) + ".." + p.EndDate.Format(DateLayout)
}

// Overlaps reports whether the two inclusive ranges share a day.
func (p *StockPeriod) Overlaps(start, end time.Time) bool {
	start, end = DateOnly(start), DateOnly(end)
	return !p.StartDate.After(end) && !start.After(p.EndDate)
}

// SameRange reports whether the period spans exactly start..end.
func (p *StockPeriod) SameRange(start, end time.Time) bool {
	return p.StartDate.Equal(DateOnly(start)) && p.EndDate.Equal(DateOnly(end))
}

// Contains reports whether t falls on a day inside the period.
func (p *StockPeriod) Contains(t time.Time) bool {
	day := DateOnly(t)
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// CheckOpen fails when the period is closed.
func (p *StockPeriod) CheckOpen() error {
	if p.IsClosed {
		return apperror.NewPeriodClosed(p.Label()).WithDetail("periodId", p.ID)
	}
	return nil
}

// Close marks the period closed. Closing a closed period keeps the original
// audit fields and reports false.
func (p *StockPeriod) Close(at time.Time, by string) bool {
	if p.IsClosed {
		return false
	}
	at = at.UTC()
	p.IsClosed = true
	p.ClosedAt = &at
	p.ClosedBy = &by
	return true
}

// Reopen moves a closed period back to open.
func (p *StockPeriod) Reopen(at time.Time, by string) error {
	if !p.IsClosed {
		return apperror.NewPrecondition(apperror.CodePeriodNotClosed,
			fmt.Sprintf("period %s is not closed", p.Label())).
			WithDetail("periodId", p.ID)
	}
	at = at.UTC()
	p.IsClosed = false
	p.ReopenedAt = &at
	p.ReopenedBy = &by
	return nil
}

// SortByStart orders periods chronologically.
func SortByStart(periods []StockPeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartDate.Before(periods[j].StartDate)
	})
}

// Neighbours returns the periods immediately before and after target in a
// hotel's chronological list. Either may be nil.
func Neighbours(periods []StockPeriod, target *StockPeriod) (prev, next *StockPeriod) {
	for i := range periods {
		p := &periods[i]
		if p.ID == target.ID {
			continue
		}
		if p.StartDate.Before(target.StartDate) {
			if prev == nil || p.StartDate.After(prev.StartDate) {
				prev = p
			}
		} else if p.StartDate.After(target.StartDate) {
			if next == nil || p.StartDate.Before(next.StartDate) {
				next = p
			}
		}
	}
	return prev, next
}

// Overlap is a pair of periods that share at least one day.
type Overlap struct {
	First  StockPeriod
	Second StockPeriod
}

// FindOverlaps returns every overlapping pair, ordered by start date.
func FindOverlaps(periods []StockPeriod) []Overlap {
	sorted := make([]StockPeriod, len(periods))
	copy(sorted, periods)
	SortByStart(sorted)

	var out []Overlap
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].StartDate.After(sorted[i].EndDate) {
				break
			}
			out = append(out, Overlap{First: sorted[i], Second: sorted[j]})
		}
	}
	return out
}

// OverlapError builds the data integrity error for a range colliding with existing.
func OverlapError(existing *StockPeriod, start, end time.Time) *apperror.AppError {
	return apperror.NewDataIntegrity(apperror.CodePeriodOverlap,
		fmt.Sprintf("period %s..%s overlaps existing period %s",
			DateOnly(start).Format(DateLayout), DateOnly(end).Format(DateLayout), existing.Label())).
		WithDetail("hotelId", existing.HotelID).
		WithDetail("existingPeriodId", existing.ID)
}
