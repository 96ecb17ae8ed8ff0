// Package main is the entry point for the barstock API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barstock/internal/app"
	"barstock/internal/config"
	"barstock/internal/infrastructure/cache"
	v1 "barstock/internal/infrastructure/http/v1"
	"barstock/internal/infrastructure/http/v1/handlers"
	"barstock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting barstock server", "storage", cfg.Storage)

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	checks := map[string]handlers.Check{}
	routerCfg := v1.RouterConfig{
		Engine:  rt.Engine,
		Storage: cfg.Storage,
		Checks:  checks,
		Logger:  log,
		Debug:   cfg.IsDevelopment(),
	}
	if rt.Pool != nil {
		checks["database"] = rt.Pool.Ping
		routerCfg.Pool = rt.Pool.Pool

		items := cache.NewItemCache(rt.Engine.Stores.Items, rt.Pool.Pool)
		items.Start(ctx)
		defer items.Stop()
		routerCfg.Items = items
	}
	if rt.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}
