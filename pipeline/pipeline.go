// Package pipeline runs one sequential extraction pass: resolve character
// codes, render the page, build records, export.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/use-agent/e7record/battle"
	"github.com/use-agent/e7record/codes"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/export"
	"github.com/use-agent/e7record/models"
	"github.com/use-agent/e7record/roster"
	"golang.org/x/net/html"
)

// PageSource renders a match-history URL to HTML.
type PageSource interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// CodeSource produces the character code table. It must not fail.
type CodeSource interface {
	Load(ctx context.Context) *codes.Table
}

// Result describes one pass.
type Result struct {
	RunID     string
	SourceURL string
	Records   []models.BattleRecord
	Stats     battle.Stats
	Output    string
	ExportErr error
	Took      time.Duration
}

// Runner wires the components of a pass together.
type Runner struct {
	Codes    CodeSource
	Source   PageSource
	Extract  config.ExtractConfig
	Exporter *export.Exporter
}

// Collect renders url and builds its records. Only a page-source failure is
// returned as an error.
func (r *Runner) Collect(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), SourceURL: url}
	log := slog.With("run", res.RunID)

	table := r.Codes.Load(ctx)

	ext, err := roster.NewExtractor(r.Extract, table)
	if err != nil {
		return nil, err
	}
	builder, err := battle.NewBuilder(ext, r.Extract)
	if err != nil {
		return nil, err
	}

	rawHTML, err := r.Source.RenderHTML(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeInternal, "failed to parse rendered page", err)
	}

	res.Records, res.Stats = builder.BuildDocument(doc)
	res.Took = time.Since(start)
	log.Info("records collected",
		"url", url,
		"records", len(res.Records),
		"skipped", res.Stats.Skipped(),
		"took", res.Took.Round(time.Millisecond).String(),
	)
	return res, nil
}

// Run collects url and exports the records to dest. An export failure is
// logged and reported on Result.ExportErr rather than returned.
func (r *Runner) Run(ctx context.Context, url, dest string) (*Result, error) {
	res, err := r.Collect(ctx, url)
	if err != nil {
		return nil, err
	}

	res.Output = dest
	if err := r.Exporter.Export(res.Records, dest); err != nil {
		slog.Error("export failed", "run", res.RunID, "path", dest, "error", err)
		res.ExportErr = err
	}
	return res, nil
}

func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
