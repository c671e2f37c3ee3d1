package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// Health is the body of the health probes.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOK})
}

// GetReadiness handles GET /health/ready. The store is ready when the
// branch head can be resolved.
func (s *Server) GetReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	if _, err := s.store.Head(ctx, s.branch); err != nil {
		logger.Warn("Readiness check failed", zap.String("branch", s.branch), zap.Error(err))
		checks["store"] = "error"
		c.JSON(http.StatusServiceUnavailable, Health{Status: HealthStatusDegraded, Checks: checks})
		return
	}
	c.JSON(http.StatusOK, Health{Status: HealthStatusOK, Checks: checks})
}
