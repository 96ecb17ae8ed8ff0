package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
)

func TestFromContextAddsActorFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	hotel := id.New()
	ctx := WithLogger(context.Background(), base)
	ctx = appctx.WithActor(ctx, &appctx.Actor{UserID: "u-1", HotelID: hotel})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})

	Info(ctx, "stocktake approved", "stocktake_id", "st-1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "u-1", fields["user_id"])
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "st-1", fields["stocktake_id"])
		assert.Contains(t, fields, "hotel_id")
	}
}

func TestNewFallsBackToInfoLevel(t *testing.T) {
	l, err := New(Config{Level: "nonsense", OutputPaths: []string{"stderr"}})
	assert.NoError(t, err)
	assert.NotNil(t, l)
}

func TestHotelScopedLogCarriesOneHotelField(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	requested, audited := id.New(), id.New()
	ctx := WithLogger(context.Background(), base)
	ctx = appctx.WithActor(ctx, &appctx.Actor{UserID: "u-1", HotelID: requested})

	Info(appctx.ForHotel(ctx, audited), "integrity findings", "count", 2)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		n := 0
		for _, f := range entries[0].Context {
			if f.Key == "hotel_id" {
				n++
			}
		}
		assert.Equal(t, 1, n, "hotel_id must appear once")
		assert.Equal(t, audited.String(), entries[0].ContextMap()["hotel_id"])
		assert.Equal(t, "u-1", entries[0].ContextMap()["user_id"])
	}
}
