package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/api/middleware"
	"prompthub.io/prompthub/internal/metrics"
	"prompthub.io/prompthub/internal/pkg/logger"
)

const defaultActivityLimit = 20

// ListActivities handles GET /api/activities.
func (s *Server) ListActivities(c *gin.Context) {
	limit := cast.ToInt(c.Query("limit"))
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	activities, err := s.templates.Activities(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// GetStructure handles GET /api/bitbucket/structure.
func (s *Server) GetStructure(c *gin.Context) {
	st, err := s.templates.Structure(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"departments": st.Departments,
		"appCodes":    st.AppCodes,
	})
}

// ReceiveWebhook handles POST /api/bitbucket/webhooks. Events are only
// logged and counted.
func (s *Server) ReceiveWebhook(c *gin.Context) {
	eventKey := c.GetHeader("X-Event-Key")
	metrics.RecordWebhook(eventKey)
	logger.ForRequest(middleware.GetRequestID(c.Request.Context())).Info("Received webhook event",
		zap.String("event_key", eventKey),
		zap.String("hook_uuid", c.GetHeader("X-Hook-UUID")),
		zap.Int64("content_length", c.Request.ContentLength),
	)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
