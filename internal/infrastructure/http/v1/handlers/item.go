package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/infrastructure/http/v1/dto"
)

// ItemLister lists a hotel's active items. The item cache and the catalog
// repository both satisfy it.
type ItemLister interface {
	ActiveItems(ctx context.Context, hotelID id.ID) ([]catalog.StockItem, error)
}

// RepositoryLister adapts a catalog.Repository to ItemLister.
type RepositoryLister struct {
	Repo catalog.Repository
}

func (l RepositoryLister) ActiveItems(ctx context.Context, hotelID id.ID) ([]catalog.StockItem, error) {
	return l.Repo.ListActiveItems(ctx, hotelID)
}

type ItemHandler struct {
	*BaseHandler
	items ItemLister
}

func NewItemHandler(base *BaseHandler, items ItemLister) *ItemHandler {
	return &ItemHandler{BaseHandler: base, items: items}
}

// List returns the hotel's active stock items in category order.
// GET /api/v1/items
func (h *ItemHandler) List(c *gin.Context) {
	items, err := h.items.ActiveItems(c.Request.Context(), h.HotelID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items))
}
