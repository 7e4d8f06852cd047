// Package codes resolves opaque portrait identifiers to character names.
package codes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/use-agent/e7record/config"
)

// Unknown is the name returned for identifiers missing from the table.
const Unknown = "Unknown"

// maxBody caps the dictionary download.
const maxBody = 10 << 20

// Table maps icon identifiers to display names. It is read-only after
// construction and safe for concurrent use.
type Table struct {
	names map[string]string
}

// NewTable copies names into a new Table. Entries with an empty name are
// dropped so they resolve to Unknown.
func NewTable(names map[string]string) *Table {
	t := &Table{names: make(map[string]string, len(names))}
	for id, name := range names {
		if name != "" {
			t.names[id] = name
		}
	}
	return t
}

// Lookup returns the display name for id, or Unknown. A nil table behaves
// like an empty one.
func (t *Table) Lookup(id string) string {
	if t == nil {
		return Unknown
	}
	if name, ok := t.names[id]; ok {
		return name
	}
	return Unknown
}

// Len returns the number of known identifiers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// portrait is one value of the portraits dictionary. Only name is used.
type portrait struct {
	Name string `json:"name"`
}

// Resolver fetches the character code dictionary once per run.
type Resolver struct {
	url    string
	client *http.Client
}

// NewResolver creates a Resolver for the configured portraits source.
func NewResolver(cfg config.SourceConfig, proxy string) *Resolver {
	return &Resolver{
		url:    cfg.PortraitsURL,
		client: newHTTPClient(cfg.Timeout, proxy),
	}
}

// Load fetches and decodes the dictionary. Any failure is logged and yields
// an empty table: every lookup then degrades to Unknown instead of the run
// aborting.
func (r *Resolver) Load(ctx context.Context) *Table {
	table, err := r.fetch(ctx)
	if err != nil {
		slog.Warn("character codes unavailable, names will resolve to Unknown",
			"url", r.url, "error", err)
		return NewTable(nil)
	}
	slog.Info("character codes loaded", "count", table.Len())
	return table
}

func (r *Resolver) fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("codes: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("codes: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("codes: HTTP %d for %s", resp.StatusCode, r.url)
	}

	return decode(io.LimitReader(resp.Body, maxBody))
}

// decode reads a JSON object keyed by identifier whose values carry a name.
// Values that are not objects are skipped.
func decode(rd io.Reader) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, fmt.Errorf("codes: decode: %w", err)
	}
	names := make(map[string]string, len(raw))
	for id, msg := range raw {
		var p portrait
		if err := json.Unmarshal(msg, &p); err != nil {
			slog.Debug("codes: skipping malformed entry", "id", id, "error", err)
			continue
		}
		names[id] = p.Name
	}
	return NewTable(names), nil
}
