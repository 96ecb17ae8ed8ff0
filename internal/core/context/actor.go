// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"barstock/internal/core/id"
)

// Actor identifies who performs an operation and for which hotel.
// Authentication happens upstream; the engine only records the identity.
type Actor struct {
	UserID  string
	HotelID id.ID
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetUserID returns the acting user or "system" when none is set.
func GetUserID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.UserID != "" {
		return a.UserID
	}
	return "system"
}

// GetHotelID returns the hotel from context or the nil ID.
func GetHotelID(ctx context.Context) id.ID {
	if a := GetActor(ctx); a != nil {
		return a.HotelID
	}
	return id.ID{}
}

// ForHotel returns ctx acting for hotelID. The current user is kept; a
// context already scoped to hotelID is returned as is.
func ForHotel(ctx context.Context, hotelID id.ID) context.Context {
	a := GetActor(ctx)
	if a != nil && a.HotelID == hotelID {
		return ctx
	}
	scoped := &Actor{HotelID: hotelID}
	if a != nil {
		scoped.UserID = a.UserID
	}
	return WithActor(ctx, scoped)
}
