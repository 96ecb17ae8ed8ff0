package handlers

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/domain/integrity"
)

type IntegrityHandler struct {
	*BaseHandler
	checker *integrity.Checker
}

func NewIntegrityHandler(base *BaseHandler, checker *integrity.Checker) *IntegrityHandler {
	return &IntegrityHandler{BaseHandler: base, checker: checker}
}

// Check audits the caller's hotel.
// GET /api/v1/integrity
func (h *IntegrityHandler) Check(c *gin.Context) {
	report, err := h.checker.CheckHotel(c.Request.Context(), h.HotelID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
