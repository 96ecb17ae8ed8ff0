// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"barstock/internal/app"
	"barstock/internal/infrastructure/http/v1/handlers"
	"barstock/internal/infrastructure/http/v1/middleware"
	"barstock/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Engine *app.Engine

	// Items serves GET /items. Nil falls back to the engine's catalog repository.
	Items handlers.ItemLister

	// Storage names the backend for /health/info.
	Storage string

	// Checks are run by /health/ready.
	Checks map[string]handlers.Check

	// Pool is reported by /health/info when set.
	Pool *pgxpool.Pool

	Logger *logger.Logger

	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Items == nil {
		cfg.Items = handlers.RepositoryLister{Repo: cfg.Engine.Stores.Items}
	}

	router := gin.New()

	// Order matters: trace ids must exist before anything logs.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Storage, cfg.Checks, cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Actor())
	registerRoutes(v1, cfg)

	return router
}

func registerRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	e := cfg.Engine
	base := handlers.NewBaseHandler()

	items := handlers.NewItemHandler(base, cfg.Items)
	rg.GET("/items", items.List)

	periodHandler := handlers.NewPeriodHandler(base, e.Periods, e.Movements, e.Stocktakes, e.Closing, e.Calc)
	periods := rg.Group("/periods")
	{
		periods.GET("", periodHandler.List)
		periods.POST("", periodHandler.Create)
		periods.GET("/:id", periodHandler.Get)
		periods.POST("/:id/close", periodHandler.Close)
		periods.GET("/:id/movements", periodHandler.Movements)
		periods.GET("/:id/movement-totals", periodHandler.MovementTotals)
		periods.GET("/:id/stocktake", periodHandler.GetStocktake)
		periods.POST("/:id/stocktake", periodHandler.CreateStocktake)
	}

	movementHandler := handlers.NewMovementHandler(base, e.Movements)
	rg.POST("/movements", movementHandler.Record)

	stocktakeHandler := handlers.NewStocktakeHandler(base, e.Stocktakes, e.Calc)
	stocktakes := rg.Group("/stocktakes")
	{
		stocktakes.GET("/:id", stocktakeHandler.Get)
		stocktakes.GET("/:id/totals", stocktakeHandler.Totals)
		stocktakes.PUT("/:id/lines/:lineId/count", stocktakeHandler.CountUnits)
		stocktakes.PUT("/:id/lines/:lineId/bottles", stocktakeHandler.CountBottles)
		stocktakes.POST("/:id/approve", stocktakeHandler.Approve)
		stocktakes.POST("/:id/reopen", stocktakeHandler.Reopen)
		stocktakes.POST("/:id/refresh-opening", stocktakeHandler.RefreshOpening)
		stocktakes.POST("/:id/refresh-movements", stocktakeHandler.RefreshMovements)
		stocktakes.POST("/:id/sync-items", stocktakeHandler.SyncItems)
	}

	integrityHandler := handlers.NewIntegrityHandler(base, e.Integrity)
	rg.GET("/integrity", integrityHandler.Check)
}
