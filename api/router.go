package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/e7record/api/handler"
	"github.com/use-agent/e7record/api/middleware"
	"github.com/use-agent/e7record/config"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Collector handler.Collector
	Guard     *handler.Guard
	Limiter   *middleware.Limiter
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Records: Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	if deps.Guard == nil {
		deps.Guard = &handler.Guard{}
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewLimiter(cfg.RateLimit)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(deps.Guard, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(deps.Limiter.Middleware())

	protected.POST("/records", handler.Records(
		deps.Collector,
		deps.Guard,
		cfg.Source.URL,
		cfg.Server.RequestTimeout,
	))

	return r
}
