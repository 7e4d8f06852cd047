// Command e7record renders one match-history page and exports its battles.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/e7record/codes"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/export"
	"github.com/use-agent/e7record/internal/logging"
	"github.com/use-agent/e7record/pipeline"
	"github.com/use-agent/e7record/scraper"
	"github.com/use-agent/e7record/webhook"
)

func main() {
	// ── 1. Configuration, flags override env ────────────────────────
	cfg := config.Load()

	url := flag.String("url", cfg.Source.URL, "match-history page to extract")
	out := flag.String("out", cfg.Export.OutputPath, "output file, overwritten")
	format := flag.String("format", cfg.Export.Format, "csv or xlsx; empty infers from -out")
	flag.Parse()

	cfg.Export.OutputPath = *out
	cfg.Export.Format = *format

	// ── 2. Logging ──────────────────────────────────────────────────
	logging.Init(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *url)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, url string) int {
	// ── 3. Browser session ──────────────────────────────────────────
	session, err := scraper.NewSession(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to start browser", "error", err)
		return 1
	}
	defer session.Close()

	runner := &pipeline.Runner{
		Codes:    codes.NewResolver(cfg.Source, cfg.Browser.DefaultProxy),
		Source:   session,
		Extract:  cfg.Extract,
		Exporter: export.New(cfg.Export),
	}

	// ── 4. One pass ─────────────────────────────────────────────────
	res, err := runner.Run(ctx, url, cfg.Export.OutputPath)
	if err != nil {
		slog.Error("extraction aborted", "url", url, "error", err)
		return 1
	}

	if res.ExportErr == nil {
		slog.Info("export written",
			"path", res.Output,
			"records", len(res.Records),
			"skipped", res.Stats.Skipped(),
		)
	}

	// ── 5. Optional notification ────────────────────────────────────
	webhook.New(cfg.Webhook).Notify(ctx, res)
	return 0
}
