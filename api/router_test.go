package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/e7record/api/handler"
	"github.com/use-agent/e7record/battle"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
	"github.com/use-agent/e7record/pipeline"
)

type fakeCollector struct {
	res     *pipeline.Result
	err     error
	gotURL  string
	started chan struct{}
	release chan struct{}
}

func (f *fakeCollector) Collect(ctx context.Context, url string) (*pipeline.Result, error) {
	f.gotURL = url
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.res, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Source:    config.SourceConfig{URL: "https://example.test/default"},
		Server:    config.ServerConfig{Mode: "test", RequestTimeout: time.Second},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func sampleResult() *pipeline.Result {
	rec := models.BattleRecord{PlayerID: 1, Win: true}
	rec.Own.Characters[0] = "Ras"
	rec.Opponent.Banned = "Ken"
	return &pipeline.Result{
		RunID:     "run-1",
		SourceURL: "https://example.test/default",
		Records:   []models.BattleRecord{rec},
		Stats:     battle.Stats{Seen: 3, ZeroTurns: 1, Failed: 1},
	}
}

func do(t *testing.T, h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuth(t *testing.T) {
	r := NewRouter(testConfig(), Deps{Collector: &fakeCollector{}, StartTime: time.Now()})
	w := do(t, r, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Busy {
		t.Errorf("health = %+v", resp)
	}
}

func TestRecords_JSONDefaultURL(t *testing.T) {
	col := &fakeCollector{res: sampleResult()}
	r := NewRouter(testConfig(), Deps{Collector: col})

	w := do(t, r, http.MethodPost, "/api/v1/records", "", "k1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if col.gotURL != "https://example.test/default" {
		t.Errorf("collected %q, want default source", col.gotURL)
	}

	var resp models.RecordsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Total != 1 || resp.Skipped != 2 || resp.RunID != "run-1" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Records[0].Own.Characters[0] != "Ras" {
		t.Errorf("record = %+v", resp.Records[0])
	}
}

func TestRecords_CSV(t *testing.T) {
	col := &fakeCollector{res: sampleResult()}
	r := NewRouter(testConfig(), Deps{Collector: col})

	w := do(t, r, http.MethodPost, "/api/v1/records", `{"url":"https://example.test/other","format":"csv"}`, "k1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if col.gotURL != "https://example.test/other" {
		t.Errorf("collected %q", col.gotURL)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "player_id" || rows[1][1] != "Ras" {
		t.Errorf("rows = %v", rows)
	}
}

func TestRecords_InvalidInput(t *testing.T) {
	r := NewRouter(testConfig(), Deps{Collector: &fakeCollector{res: sampleResult()}})

	for _, body := range []string{`{"format":"xml"}`, `{"url":"not a url"}`, `{`} {
		w := do(t, r, http.MethodPost, "/api/v1/records", body, "k1")
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestRecords_Unauthorized(t *testing.T) {
	r := NewRouter(testConfig(), Deps{Collector: &fakeCollector{res: sampleResult()}})

	for _, key := range []string{"", "wrong"} {
		w := do(t, r, http.MethodPost, "/api/v1/records", "", key)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("key %q: status = %d, want 401", key, w.Code)
		}
	}
}

func TestRecords_ErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeNavigation, http.StatusBadGateway},
		{models.ErrCodeBrowserCrash, http.StatusServiceUnavailable},
		{models.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			col := &fakeCollector{err: models.NewExtractError(tt.code, "boom", nil)}
			r := NewRouter(testConfig(), Deps{Collector: col})

			w := do(t, r, http.MethodPost, "/api/v1/records", "", "k1")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var resp models.RecordsResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestRecords_BusyWhileRunning(t *testing.T) {
	col := &fakeCollector{
		res:     sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	guard := &handler.Guard{}
	r := NewRouter(testConfig(), Deps{Collector: col, Guard: guard})

	done := make(chan int)
	go func() {
		done <- do(t, r, http.MethodPost, "/api/v1/records", "", "k1").Code
	}()
	<-col.started

	if w := do(t, r, http.MethodPost, "/api/v1/records", "", "k1"); w.Code != http.StatusConflict {
		t.Errorf("concurrent status = %d, want 409", w.Code)
	}
	var health models.HealthResponse
	_ = json.Unmarshal(do(t, r, http.MethodGet, "/api/v1/health", "", "").Body.Bytes(), &health)
	if !health.Busy || health.Status != "busy" {
		t.Errorf("health while running = %+v", health)
	}

	close(col.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first status = %d, want 200", code)
	}
	if guard.Busy() {
		t.Error("guard should be released")
	}
}

func TestRecords_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	r := NewRouter(cfg, Deps{Collector: &fakeCollector{res: sampleResult()}})

	if w := do(t, r, http.MethodPost, "/api/v1/records", "", "k1"); w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/v1/records", "", "k1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}
}
