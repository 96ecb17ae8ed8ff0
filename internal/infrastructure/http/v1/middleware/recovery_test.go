package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"barstock/internal/core/apperror"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/pkg/logger"
)

func TestRecoveryRendersProblemAndLogsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(Trace())
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))
		c.Next()
	})
	r.Use(Recovery())
	r.POST("/stocktakes/:stocktakeId/approve", func(*gin.Context) {
		panic("nil calculator")
	})

	req := httptest.NewRequest(http.MethodPost, "/stocktakes/st-7/approve", nil)
	req.Header.Set(HeaderRequestID, "r-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, problemContentType, w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "nil calculator")

	var p dto.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, apperror.CodeInternal, p.Code)
	assert.Equal(t, "r-1", p.Details["request_id"])

	entries := logs.FilterMessage("panic recovered").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "/stocktakes/:stocktakeId/approve", fields["route"])
		assert.Equal(t, "st-7", fields["param_stocktakeId"])
		assert.Equal(t, "r-1", fields["request_id"])
	}
}
