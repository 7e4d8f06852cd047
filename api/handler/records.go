package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/e7record/export"
	"github.com/use-agent/e7record/models"
	"github.com/use-agent/e7record/pipeline"
)

// Collector runs one extraction pass without exporting.
type Collector interface {
	Collect(ctx context.Context, url string) (*pipeline.Result, error)
}

// Guard serialises passes over the single browser session. A request that
// arrives while a pass is running is rejected instead of queued.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire reports whether the caller now owns the session.
func (g *Guard) TryAcquire() bool { return g.busy.CompareAndSwap(false, true) }

// Release gives the session back.
func (g *Guard) Release() { g.busy.Store(false) }

// Busy reports whether a pass is in flight.
func (g *Guard) Busy() bool { return g.busy.Load() }

// Records returns a handler for POST /api/v1/records.
//
//  1. Bind and validate the request, apply defaults.
//  2. Acquire the session guard or answer 409.
//  3. Collect under RequestTimeout.
//  4. Respond as JSON or CSV.
func Records(col Collector, guard *Guard, defaultURL string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.RecordsRequest
		// An empty body is a valid request for the default source.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, models.NewExtractError(models.ErrCodeInvalidInput, err.Error(), err), start)
			return
		}
		req.Defaults(defaultURL)

		if !guard.TryAcquire() {
			respondError(c, models.NewExtractError(models.ErrCodeBusy, "an extraction is already running", nil), start)
			return
		}
		defer guard.Release()

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res, err := col.Collect(ctx, req.URL)
		if err != nil {
			respondError(c, err, start)
			return
		}

		if req.Format == "csv" {
			var buf bytes.Buffer
			if err := export.WriteCSV(&buf, res.Records); err != nil {
				respondError(c, err, start)
				return
			}
			c.Header("X-Run-ID", res.RunID)
			c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
			return
		}

		records := res.Records
		if records == nil {
			records = []models.BattleRecord{}
		}
		c.JSON(http.StatusOK, models.RecordsResponse{
			Success: true,
			RunID:   res.RunID,
			Source:  res.SourceURL,
			Total:   len(records),
			Skipped: res.Stats.Skipped(),
			Records: records,
			TookMs:  time.Since(start).Milliseconds(),
		})
	}
}
