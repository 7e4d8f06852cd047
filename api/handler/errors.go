package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/e7record/models"
)

// respondError maps an ExtractError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, start time.Time) {
	var xe *models.ExtractError
	if !errors.As(err, &xe) {
		xe = models.NewExtractError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(xe), models.RecordsResponse{
		Success: false,
		Records: []models.BattleRecord{},
		Error:   xe.ToDetail(),
		TookMs:  time.Since(start).Milliseconds(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ExtractError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeBusy:
		return http.StatusConflict // 409
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
