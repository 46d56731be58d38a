// Package api exposes the extraction engine over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/omniscrape/api/handler"
	"github.com/use-agent/omniscrape/api/middleware"
	"github.com/use-agent/omniscrape/cache"
	"github.com/use-agent/omniscrape/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work. cc may be nil
// to disable report caching.
func NewRouter(runner handler.Runner, browserStatus func() string, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(runner, browserStatus, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/extract", handler.Extract(runner, cc))

	return r
}
