package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/prompt2path/internal/system"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version  string
	required map[string]Pinger
	optional map[string]Pinger
	stats    func(ctx context.Context) (*system.HostStats, error)
}

// NewHealthHandler checks required dependencies for readiness. Optional ones only
// report degraded.
func NewHealthHandler(version string, required, optional map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		version:  version,
		required: required,
		optional: optional,
		stats: func(ctx context.Context) (*system.HostStats, error) {
			return system.CollectHostStats(ctx, 0)
		},
	}
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
	Host   *system.HostStats          `json:"host,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	checks := make(map[string]*readinessCheck, len(h.required)+len(h.optional))
	for name, p := range h.required {
		check := ping(ctx, p)
		if check.Status != "ok" {
			ready = false
		}
		checks[name] = check
	}
	for name, p := range h.optional {
		check := ping(ctx, p)
		if check.Status != "ok" {
			check.Status = "degraded"
		}
		checks[name] = check
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if host, err := h.stats(ctx); err == nil {
		resp.Host = host
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func ping(ctx context.Context, p Pinger) *readinessCheck {
	start := time.Now()
	err := p.Ping(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}
