package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/pkg/logger"
)

const problemContentType = "application/problem+json"

// ErrorHandler renders the last error registered on the context as an
// RFC 7807 problem document. Internal errors are logged, not exposed.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeProblem(c, c.Errors.Last().Err)
	}
}

func writeProblem(c *gin.Context, err error) {
	if c.Writer.Written() {
		return
	}
	ctx := c.Request.Context()

	p := dto.Problem{Instance: c.Request.URL.Path}
	if appErr, ok := apperror.AsAppError(err); ok && appErr.Kind != apperror.KindInternal {
		if appErr.Err != nil {
			logger.Warn(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}
		p.Status = appErr.HTTPStatus
		p.Code = appErr.Code
		p.Kind = appErr.Kind
		p.Detail = appErr.Message
		p.Details = appErr.Details
	} else {
		logger.Error(ctx, "unhandled error", "error", err)
		p.Status = http.StatusInternalServerError
		p.Code = apperror.CodeInternal
		p.Kind = apperror.KindInternal
		p.Detail = "Internal server error"
		p.Details = map[string]any{"request_id": c.GetString("request_id")}
	}
	if p.Status == 0 {
		p.Status = apperror.GetHTTPStatus(err)
	}
	p.Title = http.StatusText(p.Status)
	p.Type = "urn:barstock:error:" + strings.ToLower(p.Code)

	c.Header("Content-Type", problemContentType)
	c.JSON(p.Status, p)
}
