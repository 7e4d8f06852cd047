package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/e7record/models"
	"github.com/ysmood/gson"
)

// RenderHTML loads url in a fresh tab and returns the rendered document once
// the battle list is present.
//
// Lifecycle:
//
//  1. Open tab              – closed on return
//  2. Stealth + headers     – must precede navigation
//  3. Hijack mount          – block fonts/media (before navigation)
//  4. Navigate              – bounded by NavigationTimeout
//  5. Wait for battle list  – bounded by WaitTimeout; timing out is fatal
//  6. Settle                – WaitDOMStable, bounded by SettleDelay
//  7. Extract               – page.HTML()
func (s *Session) RenderHTML(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return "", models.NewExtractError(models.ErrCodeBrowserCrash, "session is closed", nil)
	}

	// ── 1. Open tab ───────────────────────────────────────────────────
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
	}()

	// ── 2. Stealth + extra headers ────────────────────────────────────
	if s.scraperCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if s.scraperCfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Accept-Language": s.scraperCfg.AcceptLanguage,
			}),
		}.Call(page)
	}

	// ── 3. Hijack ─────────────────────────────────────────────────────
	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 4. Navigate ───────────────────────────────────────────────────
	navCtx, navCancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer navCancel()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		return "", categorizeError(err, "navigation to match history failed")
	}

	// ── 5. Wait for the battle list ───────────────────────────────────
	if err := s.waitForEntries(ctx, page); err != nil {
		return "", err
	}

	// ── 6. Settle ─────────────────────────────────────────────────────
	if s.scraperCfg.SettleDelay > 0 {
		settleCtx, settleCancel := context.WithTimeout(ctx, s.scraperCfg.SettleDelay)
		if stableErr := page.Context(settleCtx).WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
				"error", stableErr,
			)
		}
		settleCancel()
	}

	// ── 7. Extract ────────────────────────────────────────────────────
	rawHTML, err := page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	slog.Info("match history rendered", "url", url, "bytes", len(rawHTML))
	return rawHTML, nil
}

// waitForEntries blocks until at least one element matches WaitSelector or
// WaitTimeout elapses.
func (s *Session) waitForEntries(ctx context.Context, page *rod.Page) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.WaitTimeout)
	defer cancel()

	if err := page.Context(waitCtx).WaitElementsMoreThan(s.scraperCfg.WaitSelector, 0); err != nil {
		return categorizeError(err, "battle list never appeared")
	}
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ExtractErrors so the caller can
// tell a timeout from a navigation failure.
func categorizeError(err error, msg string) *models.ExtractError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewExtractError(models.ErrCodeNavigation, msg, err)
	}
}
