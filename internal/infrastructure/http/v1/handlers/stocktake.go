package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/id"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
	"barstock/internal/infrastructure/http/v1/dto"
)

// StocktakeHandler serves the count sheet and its lifecycle.
type StocktakeHandler struct {
	*BaseHandler
	service *stocktake.Service
	calc    *valuation.Calculator
}

func NewStocktakeHandler(base *BaseHandler, service *stocktake.Service, calc *valuation.Calculator) *StocktakeHandler {
	return &StocktakeHandler{BaseHandler: base, service: service, calc: calc}
}

func (h *StocktakeHandler) load(c *gin.Context) (*stocktake.Stocktake, bool) {
	stocktakeID, ok := h.PathID(c, "id")
	if !ok {
		return nil, false
	}
	st, err := h.service.GetByID(c.Request.Context(), stocktakeID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	if !h.sameHotel(c, st.HotelID, "stocktake", st.ID) {
		return nil, false
	}
	return st, true
}

// lineID resolves the :lineId parameter against the stocktake's lines.
func (h *StocktakeHandler) lineID(c *gin.Context) (id.ID, bool) {
	st, ok := h.load(c)
	if !ok {
		return id.ID{}, false
	}
	lineID, ok := h.PathID(c, "lineId")
	if !ok {
		return id.ID{}, false
	}
	if _, err := st.Line(lineID); err != nil {
		h.Error(c, err)
		return id.ID{}, false
	}
	return lineID, true
}

// Get returns the stocktake with per-line figures.
// GET /api/v1/stocktakes/:id
func (h *StocktakeHandler) Get(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	h.respondStocktake(c, st, h.calc)
}

// Totals returns category and grand totals.
// GET /api/v1/stocktakes/:id/totals
func (h *StocktakeHandler) Totals(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	totals, err := h.service.GetCategoryTotals(c.Request.Context(), st.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, totals.Rounded())
}

// CountUnits records full and partial units for a line.
// PUT /api/v1/stocktakes/:id/lines/:lineId/count
func (h *StocktakeHandler) CountUnits(c *gin.Context) {
	lineID, ok := h.lineID(c)
	if !ok {
		return
	}
	var req dto.CountUnitsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.SetCountedUnits(c.Request.Context(), lineID, *req.FullUnits, *req.PartialUnits)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCount(res))
}

// CountBottles records a syrup count as decimal bottles.
// PUT /api/v1/stocktakes/:id/lines/:lineId/bottles
func (h *StocktakeHandler) CountBottles(c *gin.Context) {
	lineID, ok := h.lineID(c)
	if !ok {
		return
	}
	var req dto.CountBottlesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.SetCountedBottles(c.Request.Context(), lineID, *req.Bottles)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCount(res))
}

// Approve approves the stocktake and closes its period.
// POST /api/v1/stocktakes/:id/approve
func (h *StocktakeHandler) Approve(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	res, err := h.service.Approve(c.Request.Context(), st.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	out, err := dto.FromApprove(res, h.calc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// Reopen returns the stocktake to draft and reopens its period.
// POST /api/v1/stocktakes/:id/reopen
func (h *StocktakeHandler) Reopen(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	st, err := h.service.Reopen(c.Request.Context(), st.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respondStocktake(c, st, h.calc)
}

// RefreshOpening re-reads openings from the previous period's snapshots.
// POST /api/v1/stocktakes/:id/refresh-opening
func (h *StocktakeHandler) RefreshOpening(c *gin.Context) {
	h.rebuild(c, h.service.RefreshOpening)
}

// SyncItems matches the draft's lines to the hotel's active items.
// POST /api/v1/stocktakes/:id/sync-items
func (h *StocktakeHandler) SyncItems(c *gin.Context) {
	h.rebuild(c, h.service.SyncItems)
}

func (h *StocktakeHandler) rebuild(c *gin.Context, fn func(ctx context.Context, stocktakeID id.ID) (*stocktake.CreateResult, error)) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), st.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	out, err := dto.FromCreate(res, h.calc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// RefreshMovements reloads movement totals onto the lines.
// POST /api/v1/stocktakes/:id/refresh-movements
func (h *StocktakeHandler) RefreshMovements(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}
	st, err := h.service.RefreshMovements(c.Request.Context(), st.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respondStocktake(c, st, h.calc)
}
