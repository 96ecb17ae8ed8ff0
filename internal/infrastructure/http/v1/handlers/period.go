package handlers

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/domain/closing"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
	"barstock/internal/infrastructure/http/v1/dto"
)

// PeriodHandler serves stock periods and the per-period views.
type PeriodHandler struct {
	*BaseHandler
	periods    *period.Service
	movements  *movement.Service
	stocktakes *stocktake.Service
	closing    *closing.Service
	calc       *valuation.Calculator
}

func NewPeriodHandler(
	base *BaseHandler,
	periods *period.Service,
	movements *movement.Service,
	stocktakes *stocktake.Service,
	closing *closing.Service,
	calc *valuation.Calculator,
) *PeriodHandler {
	return &PeriodHandler{
		BaseHandler: base,
		periods:     periods,
		movements:   movements,
		stocktakes:  stocktakes,
		closing:     closing,
		calc:        calc,
	}
}

// Create opens a period for the caller's hotel.
// POST /api/v1/periods
func (h *PeriodHandler) Create(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.HotelID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	p, err := h.periods.CreatePeriod(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromPeriod(p))
}

// List returns the hotel's periods in date order.
// GET /api/v1/periods
func (h *PeriodHandler) List(c *gin.Context) {
	ps, err := h.periods.List(c.Request.Context(), h.HotelID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromPeriods(ps)))
}

func (h *PeriodHandler) load(c *gin.Context) (*period.StockPeriod, bool) {
	periodID, ok := h.PathID(c, "id")
	if !ok {
		return nil, false
	}
	p, err := h.periods.Get(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	if !h.sameHotel(c, p.HotelID, "stock_period", p.ID) {
		return nil, false
	}
	return p, true
}

// Get returns one period.
// GET /api/v1/periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	h.OK(c, dto.FromPeriod(p))
}

// Close re-runs the close from the period's approved stocktake.
// POST /api/v1/periods/:id/close
func (h *PeriodHandler) Close(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	res, err := h.closing.CloseByPeriod(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromClose(res))
}

// Movements lists the period's movements.
// GET /api/v1/periods/:id/movements
func (h *PeriodHandler) Movements(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	ms, err := h.movements.ListByPeriod(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(ms))
}

// MovementTotals sums the period's movements per item.
// GET /api/v1/periods/:id/movement-totals
func (h *PeriodHandler) MovementTotals(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	totals, err := h.movements.TotalsByPeriod(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromTotals(totals)))
}

// CreateStocktake builds the period's draft count sheet.
// POST /api/v1/periods/:id/stocktake
func (h *PeriodHandler) CreateStocktake(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	res, err := h.stocktakes.CreateForPeriod(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	out, err := dto.FromCreate(res, h.calc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, out)
}

// GetStocktake returns the period's stocktake.
// GET /api/v1/periods/:id/stocktake
func (h *PeriodHandler) GetStocktake(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	st, err := h.stocktakes.GetByPeriod(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.respondStocktake(c, st, h.calc)
}
