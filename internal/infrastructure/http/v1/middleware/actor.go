package middleware

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
)

const (
	HeaderHotelID = "X-Hotel-ID"
	HeaderUserID  = "X-User-ID"
)

// Actor puts the hotel and user named by the gateway headers into the request
// context. Authentication happens upstream; a missing or malformed hotel is
// rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		hotelID, err := id.Parse(c.GetHeader(HeaderHotelID))
		if err != nil || id.IsNil(hotelID) {
			_ = c.Error(apperror.NewValidation(HeaderHotelID + " header must carry the hotel UUID"))
			c.Abort()
			return
		}
		ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{
			UserID:  c.GetHeader(HeaderUserID),
			HotelID: hotelID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
