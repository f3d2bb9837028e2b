// Package api exposes the path-generation and metadata endpoints over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services behind the routes. Health may be nil.
type Deps struct {
	Paths  PathGenerator
	Store  metadata.Store
	Health *HealthHandler
}

type Router struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   Deps
}

func New(cfg *config.Config, deps Deps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Health == nil {
		deps.Health = NewHealthHandler(cfg.App.Version, nil, nil)
	}

	r := &Router{engine: gin.New(), cfg: cfg, deps: deps}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(Recovery())
	r.engine.Use(RequestID())
	r.engine.Use(CORS(nil))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(Trace(r.cfg.App.Name))
		r.engine.Use(TraceContext())
	}
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(Metrics())
	}
}

func (r *Router) setupRoutes() {
	health := r.deps.Health
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	paths := NewPathHandler(r.deps.Paths)
	models := NewMetadataHandler(r.deps.Store)

	v1 := r.engine.Group("/v1")
	{
		v1.POST("/paths", paths.Generate)

		m := v1.Group("/models/:id")
		{
			m.GET("/metadata", models.Get)
			m.PUT("/metadata", models.Put)
			m.PUT("/environment", models.PutEnvironment)
		}
	}
}
