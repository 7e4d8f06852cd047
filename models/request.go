package models

// RecordsRequest is the payload for POST /api/v1/records.
type RecordsRequest struct {
	// URL is the match-history page to extract. Empty means the configured
	// default source.
	URL string `json:"url,omitempty" binding:"omitempty,url"`

	// Format controls the response body.
	// Allowed: "json" (default), "csv".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=json csv"`
}

// Defaults applies default values to unset fields.
func (r *RecordsRequest) Defaults(defaultURL string) {
	if r.URL == "" {
		r.URL = defaultURL
	}
	if r.Format == "" {
		r.Format = "json"
	}
}

// RecordsResponse is the JSON response for POST /api/v1/records.
type RecordsResponse struct {
	Success bool           `json:"success"`
	RunID   string         `json:"run_id,omitempty"`
	Source  string         `json:"source_url,omitempty"`
	Total   int            `json:"total"`
	Skipped int            `json:"skipped"`
	Records []BattleRecord `json:"records"`
	TookMs  int64          `json:"took_ms"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "busy"
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Version string `json:"version"`
}
