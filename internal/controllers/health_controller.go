package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkguard/internal/models"
)

// Pinger is anything whose liveness can be probed.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthController struct {
	db    Pinger
	cache Pinger // nil when running without Redis
}

func NewHealthController(db, cache Pinger) *HealthController {
	return &HealthController{db: db, cache: cache}
}

// Health handles GET /health. The cache is optional, so only a database
// failure makes the service unhealthy.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Database: "ok", Cache: "disabled"}
	status := http.StatusOK

	if err := hc.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	if hc.cache != nil {
		resp.Cache = "ok"
		if err := hc.cache.PingContext(ctx); err != nil {
			resp.Cache = "down"
		}
	}

	c.JSON(status, resp)
}
