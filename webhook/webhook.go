// Package webhook posts a signed notification after each export.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/pipeline"
)

// Event types.
const (
	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-E7record-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string  `json:"type"`
	RunID     string  `json:"run_id"`
	Timestamp int64   `json:"timestamp"`
	Data      Summary `json:"data"`
}

// Summary describes the run that triggered the event.
type Summary struct {
	SourceURL string `json:"source_url"`
	Output    string `json:"output,omitempty"`
	Records   int    `json:"records"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// Notifier delivers events to one endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
}

// New returns a Notifier, or nil when no URL is configured.
func New(cfg config.WebhookConfig) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{url: cfg.URL, secret: cfg.Secret, client: &http.Client{Timeout: timeout}}
}

// EventFor builds the event describing res.
func EventFor(res *pipeline.Result) *Event {
	ev := &Event{
		Type:      EventExportCompleted,
		RunID:     res.RunID,
		Timestamp: time.Now().Unix(),
		Data: Summary{
			SourceURL: res.SourceURL,
			Output:    res.Output,
			Records:   len(res.Records),
			Skipped:   res.Stats.Skipped(),
		},
	}
	if res.ExportErr != nil {
		ev.Type = EventExportFailed
		ev.Data.Error = res.ExportErr.Error()
	}
	return ev
}

// Notify delivers the event for res. Delivery failures are logged only; a nil
// Notifier does nothing.
func (n *Notifier) Notify(ctx context.Context, res *pipeline.Result) {
	if n == nil {
		return
	}
	ev := EventFor(res)
	if err := n.Deliver(ctx, ev); err != nil {
		slog.Warn("webhook delivery failed", "url", n.url, "event", ev.Type, "run", ev.RunID, "error", err)
		return
	}
	slog.Info("webhook delivered", "url", n.url, "event", ev.Type, "run", ev.RunID)
}

// Deliver sends one event synchronously, in a single attempt.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "e7record-webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
