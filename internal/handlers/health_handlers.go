package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db        Pinger
	redisSvc  Pinger
	storage   Pinger
	clock     clockwork.Clock
	startedAt time.Time
	version   string
}

// NewHealthHandlers creates a new health handlers instance. redisSvc and storage may be nil
// when those backends are not configured.
func NewHealthHandlers(db, redisSvc, storage Pinger, clock clockwork.Clock, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		redisSvc:  redisSvc,
		storage:   storage,
		clock:     clock,
		startedAt: clock.Now(),
		version:   version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

const checkTimeout = 2 * time.Second

func check(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// HealthCheck reports the state of every backend. The cache and archive are optional, so only
// the database decides the status code.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	now := h.clock.Now()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339),
		Services: map[string]string{
			"database": check(ctx, h.db),
			"redis":    check(ctx, h.redisSvc),
			"storage":  check(ctx, h.storage),
		},
		Uptime:  now.Sub(h.startedAt).Round(time.Second).String(),
		Version: h.version,
	}

	for _, state := range health.Services {
		if state == "unhealthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Services["database"] != "healthy" {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, health)
}

// ReadinessCheck determines if the application is ready to serve traffic
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	if check(c.Request().Context(), h.db) != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running (basic liveness probe)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": h.clock.Now().UTC().Format(time.RFC3339),
	})
}
