package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
	"barstock/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID parses a UUID path parameter.
func (h *BaseHandler) PathID(c *gin.Context, param string) (id.ID, bool) {
	v, err := dto.ParseID(param, c.Param(param))
	if err != nil {
		h.Error(c, err)
		return id.ID{}, false
	}
	return v, true
}

// HotelID is the hotel the request acts for.
func (h *BaseHandler) HotelID(c *gin.Context) id.ID {
	return appctx.GetHotelID(c.Request.Context())
}

// Error registers err on the Gin context and aborts the request.
// The response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Created sends 201 response with ID.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// sameHotel refuses access to another hotel's data.
func (h *BaseHandler) sameHotel(c *gin.Context, hotelID id.ID, entity string, entityID id.ID) bool {
	if hotelID != h.HotelID(c) {
		h.Error(c, apperror.NewNotFound(entity, entityID))
		return false
	}
	return true
}

// respondStocktake renders st with rounded line figures, or the error that
// kept a line from being valued.
func (h *BaseHandler) respondStocktake(c *gin.Context, st *stocktake.Stocktake, calc *valuation.Calculator) {
	out, err := dto.FromStocktake(st, calc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}
