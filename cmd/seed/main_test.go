package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/id"
	"barstock/internal/domain/uom"
)

func TestDemoItemsAreValid(t *testing.T) {
	hotelID := id.New()
	items, err := buildItems(hotelID)
	require.NoError(t, err)
	require.Len(t, items, len(demoItems))

	registry := uom.NewRegistry()
	for i := range items {
		_, err := registry.ForItem(&items[i])
		assert.NoError(t, err, items[i].SKU)
	}
}

func TestDemoItemIDsAreStable(t *testing.T) {
	hotelID := id.New()
	first, err := buildItems(hotelID)
	require.NoError(t, err)
	second, err := buildItems(hotelID)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	other, err := buildItems(id.New())
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, other[0].ID)
}
