// Package main runs the integrity audit over persisted periods, stocktakes
// and snapshots. It prints one JSON report per hotel and exits 1 when
// anything was found. With -every it keeps auditing on an interval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"barstock/internal/app"
	"barstock/internal/config"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/domain/integrity"
	"barstock/pkg/logger"
)

const (
	exitClean    = 0
	exitFindings = 1
	exitError    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	hotels := flag.String("hotels", "", "comma-separated hotel ids; empty checks every hotel")
	every := flag.Duration("every", 0, "repeat the audit on this interval until interrupted")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return exitError
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return exitError
	}
	logger.SetDefault(log)

	hotelIDs, err := parseHotels(*hotels)
	if err != nil {
		log.Errorw("bad -hotels", "error", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext(ctx, "", ""))

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Errorw("failed to open storage", "error", err)
		return exitError
	}
	defer rt.Close()

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}

	audit := func() int {
		reports, err := check(ctx, rt.Integrity, hotelIDs)
		if err != nil {
			log.Errorw("integrity audit failed", "error", err)
			return exitError
		}
		code := exitClean
		for i := range reports {
			if err := enc.Encode(&reports[i]); err != nil {
				log.Errorw("write report", "error", err)
				return exitError
			}
			if !reports[i].Clean() {
				code = exitFindings
			}
		}
		log.Infow("integrity audit finished", "hotels", len(reports), "clean", code == exitClean)
		return code
	}

	if *every <= 0 {
		return audit()
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	code := audit()
	for {
		select {
		case <-ctx.Done():
			log.Info("integrity worker stopped")
			return code
		case <-ticker.C:
			code = audit()
		}
	}
}

func check(ctx context.Context, checker *integrity.Checker, hotelIDs []id.ID) ([]integrity.Report, error) {
	if len(hotelIDs) == 0 {
		return checker.CheckAll(ctx)
	}
	return checker.CheckHotels(ctx, hotelIDs)
}

func parseHotels(s string) ([]id.ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []id.ID
	for _, part := range strings.Split(s, ",") {
		hotelID, err := id.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		out = append(out, hotelID)
	}
	return out, nil
}
