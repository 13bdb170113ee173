package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joeconsedine/claude-maze/internal/version"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// handleHealthLive reports process liveness only; it never touches
// dependencies.
func (s *Server) handleHealthLive(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       version.Get().Version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	})
}

// handleHealthReady additionally pings the optional backing stores. The
// coordinator itself is in-memory, so a missing store is "skipped", not a
// failure.
func (s *Server) handleHealthReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["postgres"] = "unreachable"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "skipped"
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "skipped"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, healthResponse{
		Status:        status,
		Version:       version.Get().Version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Checks:        checks,
	})
}
