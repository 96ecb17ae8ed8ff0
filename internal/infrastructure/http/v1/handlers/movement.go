package handlers

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/domain/movement"
	"barstock/internal/infrastructure/http/v1/dto"
)

type MovementHandler struct {
	*BaseHandler
	service *movement.Service
}

func NewMovementHandler(base *BaseHandler, service *movement.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// Record stores one stock event.
// POST /api/v1/movements
func (h *MovementHandler) Record(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.HotelID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	m, err := h.service.Record(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}
