package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the template API on r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/templates", s.ListTemplates)
		api.POST("/templates", s.CreateTemplate)
		api.GET("/templates/:id", s.GetTemplate)
		api.PUT("/templates/:id", s.UpdateTemplate)
		api.DELETE("/templates/:id", s.DeleteTemplate)
		api.GET("/templates/:id/history", s.GetTemplateHistory)
		api.GET("/activities", s.ListActivities)
		api.GET("/bitbucket/structure", s.GetStructure)
		api.POST("/bitbucket/webhooks", s.ReceiveWebhook)
	}
}

// RegisterHealthRoutes mounts the liveness and readiness probes on r.
func (s *Server) RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)
}
