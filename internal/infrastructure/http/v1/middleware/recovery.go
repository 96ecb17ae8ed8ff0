// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/pkg/logger"
)

// Recovery turns a panic into a 500 problem. The stack and the route's
// period or stocktake go to the log; the client only sees the request ID.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()

			kv := []any{"route", c.FullPath(), "panic", rec, "stack", string(debug.Stack())}
			for _, p := range c.Params {
				kv = append(kv, "param_"+p.Key, p.Value)
			}
			logger.Error(ctx, "panic recovered", kv...)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic in %s: %v", c.FullPath(), rec)).
				WithDetail("request_id", appctx.GetRequestID(ctx)))
			c.Abort()
			writeProblem(c, c.Errors.Last().Err)
		}()
		c.Next()
	}
}
