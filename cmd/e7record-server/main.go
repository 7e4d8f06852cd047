// Command e7record-server exposes extraction passes over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/e7record/api"
	"github.com/use-agent/e7record/api/middleware"
	"github.com/use-agent/e7record/codes"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/export"
	"github.com/use-agent/e7record/internal/logging"
	"github.com/use-agent/e7record/pipeline"
	"github.com/use-agent/e7record/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logging.Init(cfg.Log, os.Stdout)
	slog.Info("e7record server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"auth", cfg.Auth.Enabled,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled without API keys, records endpoint is open")
	}

	// ── 3. Browser session ──────────────────────────────────────────
	session, err := scraper.NewSession(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	runner := &pipeline.Runner{
		Codes:    codes.NewResolver(cfg.Source, cfg.Browser.DefaultProxy),
		Source:   session,
		Extract:  cfg.Extract,
		Exporter: export.New(cfg.Export),
	}

	// ── 4. Router ───────────────────────────────────────────────────
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewLimiter(cfg.RateLimit)
	go limiter.Run(rootCtx, 5*time.Minute)

	router := api.NewRouter(cfg, api.Deps{
		Collector: runner,
		Limiter:   limiter,
		StartTime: time.Now(),
	})

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// An in-flight pass may still be rendering; allow it the request timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("e7record server stopped")
}
