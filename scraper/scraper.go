// Package scraper owns the browser used to render the match-history page.
package scraper

import (
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
)

// Session is one browser, acquired at start and released by Close.
// Renders are serialized: only one page is open at a time.
type Session struct {
	mu         sync.Mutex
	browser    *rod.Browser
	remote     bool
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
}

// NewSession launches a browser, or connects to BrowserCfg.CDPURL when set.
// Failure here is fatal for a run.
func NewSession(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Session, error) {
	s := &Session{browserCfg: browserCfg, scraperCfg: scraperCfg}

	controlURL := browserCfg.CDPURL
	if controlURL != "" {
		s.remote = true
	} else {
		var err error
		controlURL, err = launch(browserCfg)
		if err != nil {
			return nil, models.NewExtractError(
				models.ErrCodeBrowserCrash,
				"failed to launch browser",
				err,
			)
		}
		slog.Info("browser launched", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	s.browser = browser
	return s, nil
}

func launch(cfg config.BrowserConfig) (string, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("start-fullscreen"))

	return l.Launch()
}

// Close releases the browser. A launched browser is killed; a remote one
// is left running.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return
	}
	if s.remote {
		slog.Info("session closed, remote browser left running")
		s.browser = nil
		return
	}
	if err := s.browser.Close(); err != nil {
		slog.Warn("failed to close browser", "error", err)
	}
	s.browser = nil
	slog.Info("browser closed")
}
