package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/omniscrape/cache"
	"github.com/use-agent/omniscrape/engine"
	"github.com/use-agent/omniscrape/models"
)

// Runner executes one extraction run. *engine.Dispatcher implements it.
type Runner interface {
	Run(ctx context.Context, url string, opts engine.RunOptions) (*models.RunReport, error)
	InFlight() int
}

// Extract returns a handler for POST /api/v1/extract.
//
// Flow:
//  1. Parse & validate ExtractRequest, apply defaults.
//  2. Serve a cached report if one is younger than max_age.
//  3. Run the extraction under the request timeout.
//  4. Cache successful reports and respond.
func Extract(runner Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		useCache := cc != nil && req.MaxAge > 0
		cacheKey := cache.Key(req.URL, req.Static, req.DownloadMedia)
		if useCache {
			if cached, hit := cc.Get(cacheKey, time.Duration(req.MaxAge)*time.Millisecond); hit {
				c.JSON(http.StatusOK, models.ExtractResponse{Success: true, Report: cached, CacheStatus: "hit"})
				return
			}
		}

		// ── 3. Run ──────────────────────────────────────────────────
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(req.Timeout)*time.Second)
		defer cancel()

		report, err := runner.Run(ctx, req.URL, engine.RunOptions{
			Static:        req.Static,
			DownloadMedia: req.DownloadMedia,
		})
		if err != nil {
			respondError(c, err, report)
			return
		}

		// ── 4. Cache store and respond ──────────────────────────────
		resp := models.ExtractResponse{Success: true, Report: report}
		if useCache {
			cc.Set(cacheKey, report)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response. The partial report is included.
func respondError(c *gin.Context, err error, report *models.RunReport) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.ExtractResponse{
		Success: false,
		Report:  report,
		Error:   scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeNavigationTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeMediaResolution, models.ErrCodeMediaForbidden:
		return http.StatusBadGateway // 502
	case models.ErrCodeBlockDetected:
		return http.StatusForbidden // 403
	case models.ErrCodeExtractionEmpty:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
