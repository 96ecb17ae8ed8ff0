package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"barstock/internal/core/id"
)

func TestForHotel(t *testing.T) {
	hotel, other := id.New(), id.New()

	ctx := ForHotel(context.Background(), hotel)
	require.NotNil(t, GetActor(ctx))
	assert.Equal(t, hotel, GetHotelID(ctx))
	assert.Equal(t, "system", GetUserID(ctx))

	scoped := WithActor(context.Background(), &Actor{UserID: "manager", HotelID: hotel})
	assert.Equal(t, scoped, ForHotel(scoped, hotel), "same hotel keeps the context")

	switched := ForHotel(scoped, other)
	assert.Equal(t, other, GetHotelID(switched))
	assert.Equal(t, "manager", GetUserID(switched))
	assert.Equal(t, hotel, GetHotelID(scoped), "parent actor is not mutated")
}

func TestNewTraceContext(t *testing.T) {
	kept := NewTraceContext(context.Background(), "t-1", "r-1")
	assert.Equal(t, &TraceContext{TraceID: "t-1", RequestID: "r-1"}, kept)

	generated := NewTraceContext(context.Background(), "", "")
	assert.NotEmpty(t, generated.TraceID)
	assert.NotEmpty(t, generated.RequestID)
	assert.NotEqual(t, generated.TraceID, generated.RequestID)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	fromSpan := NewTraceContext(ctx, "", "r-2")
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fromSpan.TraceID)
	assert.Equal(t, "r-2", fromSpan.RequestID)
}

func TestSpanAttributes(t *testing.T) {
	assert.Empty(t, SpanAttributes(context.Background()))

	hotel := id.New()
	ctx := WithActor(context.Background(), &Actor{UserID: "manager", HotelID: hotel})
	ctx = WithTrace(ctx, &TraceContext{TraceID: "t-1", RequestID: "r-1"})

	assert.ElementsMatch(t, []attribute.KeyValue{
		attribute.String("barstock.hotel_id", hotel.String()),
		attribute.String("barstock.user_id", "manager"),
		attribute.String("barstock.request_id", "r-1"),
	}, SpanAttributes(ctx))

	system := WithActor(context.Background(), &Actor{})
	assert.Empty(t, SpanAttributes(system), "nil hotel and empty user are omitted")
}
