package period_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/period"
	"barstock/internal/infrastructure/storage/memory"
)

func newService() *period.Service {
	store := memory.New()
	return period.NewService(store.Periods(), store.TxManager())
}

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCreatePeriodRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	hotel := id.New()

	jan, err := svc.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: date(1, 1), EndDate: date(1, 31)})
	require.NoError(t, err)
	assert.False(t, jan.IsClosed)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"same range", date(1, 1), date(1, 31)},
		{"shares last day", date(1, 31), date(2, 28)},
		{"inside", date(1, 10), date(1, 12)},
		{"covers", date(12, 1).AddDate(-1, 0, 0), date(3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: tt.start, EndDate: tt.end})
			require.Error(t, err)
			assert.True(t, apperror.IsDataIntegrity(err))
			assert.True(t, apperror.HasCode(err, apperror.CodePeriodOverlap))
		})
	}

	// Another hotel may use the same dates.
	_, err = svc.CreatePeriod(ctx, period.CreateInput{HotelID: id.New(), StartDate: date(1, 1), EndDate: date(1, 31)})
	assert.NoError(t, err)
}

func TestCreatePeriodValidatesRange(t *testing.T) {
	svc := newService()
	_, err := svc.CreatePeriod(context.Background(), period.CreateInput{
		HotelID: id.New(), StartDate: date(2, 1), EndDate: date(1, 1),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestNeighboursFollowChronology(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	hotel := id.New()

	mar, err := svc.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: date(3, 1), EndDate: date(3, 31)})
	require.NoError(t, err)
	jan, err := svc.CreatePeriod(ctx, period.CreateInput{HotelID: hotel, StartDate: date(1, 1), EndDate: date(1, 31)})
	require.NoError(t, err)

	// February is missing; January and March are still adjacent.
	prev, next, err := svc.Neighbours(ctx, mar)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, jan.ID, prev.ID)
	assert.Nil(t, next)

	list, err := svc.List(ctx, hotel)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, jan.ID, list[0].ID)
}
