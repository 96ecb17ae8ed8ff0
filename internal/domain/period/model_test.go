package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	p := New(id.New(), day("2024-02-01"), day("2024-02-29"))

	tests := []struct {
		start, end string
		want       bool
	}{
		{"2024-01-01", "2024-01-31", false},
		{"2024-01-01", "2024-02-01", true},
		{"2024-02-29", "2024-03-31", true},
		{"2024-03-01", "2024-03-31", false},
		{"2024-02-10", "2024-02-12", true},
		{"2024-01-01", "2024-12-31", true},
	}
	for _, tt := range tests {
		t.Run(tt.start+".."+tt.end, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Overlaps(day(tt.start), day(tt.end)))
		})
	}
}

func TestContainsIsInclusive(t *testing.T) {
	p := New(id.New(), day("2024-02-01"), day("2024-02-29"))

	assert.True(t, p.Contains(day("2024-02-01")))
	assert.True(t, p.Contains(day("2024-02-29").Add(23*time.Hour)))
	assert.False(t, p.Contains(day("2024-03-01")))
	assert.False(t, p.Contains(day("2024-01-31").Add(23*time.Hour)))
}

func TestCloseAndReopen(t *testing.T) {
	p := New(id.New(), day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, p.CheckOpen())

	err := p.Reopen(time.Now(), "mgr")
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodNotClosed))

	first := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, p.Close(first, "mgr"))
	assert.False(t, p.Close(first.Add(time.Hour), "other"))
	assert.Equal(t, first, *p.ClosedAt)
	assert.Equal(t, "mgr", *p.ClosedBy)
	assert.True(t, apperror.HasCode(p.CheckOpen(), apperror.CodePeriodClosed))

	require.NoError(t, p.Reopen(first.Add(2*time.Hour), "gm"))
	assert.False(t, p.IsClosed)
	assert.Equal(t, "gm", *p.ReopenedBy)
}

func TestNeighbours(t *testing.T) {
	hotel := id.New()
	jan := *New(hotel, day("2024-01-01"), day("2024-01-31"))
	feb := *New(hotel, day("2024-02-01"), day("2024-02-29"))
	mar := *New(hotel, day("2024-03-01"), day("2024-03-31"))

	periods := []StockPeriod{mar, jan, feb}

	prev, next := Neighbours(periods, &feb)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, jan.ID, prev.ID)
	assert.Equal(t, mar.ID, next.ID)

	prev, next = Neighbours(periods, &jan)
	assert.Nil(t, prev)
	assert.Equal(t, feb.ID, next.ID)
}

func TestFindOverlaps(t *testing.T) {
	hotel := id.New()
	a := *New(hotel, day("2024-01-01"), day("2024-01-31"))
	b := *New(hotel, day("2024-01-15"), day("2024-02-14"))
	c := *New(hotel, day("2024-03-01"), day("2024-03-31"))

	overlaps := FindOverlaps([]StockPeriod{c, b, a})
	require.Len(t, overlaps, 1)
	assert.Equal(t, a.ID, overlaps[0].First.ID)
	assert.Equal(t, b.ID, overlaps[0].Second.ID)

	assert.Empty(t, FindOverlaps([]StockPeriod{a, c}))
}
