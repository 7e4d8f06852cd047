package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/e7record/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status reads "busy" while an extraction holds the browser session.
func Health(guard *Guard, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		busy := guard.Busy()

		status := "healthy"
		if busy {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Busy:    busy,
			Version: Version,
		})
	}
}
