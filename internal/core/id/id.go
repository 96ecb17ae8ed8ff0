// Package id provides UUIDv7 identifiers for every engine entity.
// UUIDv7 is time-ordered, so lines and movements sort by creation naturally.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type shared by hotels, items, periods, stocktakes and snapshots.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Set is a membership set of IDs.
type Set map[ID]struct{}

// NewSet builds a set from the given IDs.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, v := range ids {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(v ID) bool {
	_, ok := s[v]
	return ok
}
