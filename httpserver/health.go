package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	livenessMessage    = "Movies API!"
	healthCheckTimeout = 2 * time.Second
)

func (s *Server) RegisterHealthRoutes() {
	s.Router.GET("/", s.liveness)
	s.Router.GET("/healthcheck", s.healthCheck)
}

func (s *Server) liveness(c echo.Context) error {
	return c.String(http.StatusOK, livenessMessage)
}

// healthCheck godoc
// @Summary Health Check
// @Description Check if server and database are alive
// @Tags health
// @Success 200 {object} map[string]string
// @Failure 503 {object} APIResponse
// @Router /healthcheck [get]
func (s *Server) healthCheck(c echo.Context) error {
	if s.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		defer cancel()

		if err := s.HealthCheck(ctx); err != nil {
			s.Logger.Warnw("health check failed", "error", err)
			return writeError(c, http.StatusServiceUnavailable, "database unavailable", "", err)
		}
	}

	return writeSuccess(c, http.StatusOK, map[string]string{
		"status": "OK",
	})
}
