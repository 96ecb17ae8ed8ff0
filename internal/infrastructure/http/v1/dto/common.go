// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// DateLayout is the wire format of period boundaries.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in UTC.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperror.NewValidation(field + " must be a date (YYYY-MM-DD)").WithDetail("value", s)
	}
	return t, nil
}

// ParseID parses a path or body identifier.
func ParseID(field, s string) (id.ID, error) {
	v, err := id.Parse(s)
	if err != nil {
		return id.ID{}, apperror.NewValidation(field + " must be a UUID").WithDetail("value", s)
	}
	return v, nil
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse never renders a null item list.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Code     string         `json:"code"`
	Kind     apperror.Kind  `json:"kind,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}
