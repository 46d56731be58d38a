package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/omniscrape/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// browserStatus reports the browser state ("running", "idle"); it may be nil.
func Health(runner Runner, browserStatus func() string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		browser := "unknown"
		if browserStatus != nil {
			browser = browserStatus()
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   "healthy",
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Version:  Version,
			Browser:  browser,
			InFlight: runner.InFlight(),
		})
	}
}
