package context

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"barstock/internal/core/id"
)

// TraceContext carries the correlation IDs of one request or CLI run.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext fills the IDs a caller did not supply. A missing trace ID
// is taken from the active span so logs and spans correlate; failing that,
// both IDs are generated.
func NewTraceContext(ctx context.Context, traceID, requestID string) *TraceContext {
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else {
			traceID = uuid.New().String()
		}
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

// SpanAttributes returns the hotel, user and request of ctx as span
// attributes. Unset values are omitted.
func SpanAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if a := GetActor(ctx); a != nil {
		if !id.IsNil(a.HotelID) {
			attrs = append(attrs, attribute.String("barstock.hotel_id", a.HotelID.String()))
		}
		if a.UserID != "" {
			attrs = append(attrs, attribute.String("barstock.user_id", a.UserID))
		}
	}
	if rid := GetRequestID(ctx); rid != "" {
		attrs = append(attrs, attribute.String("barstock.request_id", rid))
	}
	return attrs
}
