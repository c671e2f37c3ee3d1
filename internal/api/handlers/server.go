// Package handlers implements the HTTP handlers of the prompt template API.
//
// Routes are registered by internal/app; handlers only translate between
// HTTP and the TemplateService and push failures with c.Error so the
// ErrorHandler middleware renders the envelope.
//
// Import Path: prompthub.io/prompthub/internal/api/handlers
package handlers

import (
	"github.com/gin-gonic/gin"

	"prompthub.io/prompthub/internal/api/middleware"
	"prompthub.io/prompthub/internal/filestore"
	"prompthub.io/prompthub/internal/service"
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	templates *service.TemplateService
	store     filestore.Store
	branch    string
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Templates *service.TemplateService
	Store     filestore.Store
	// Branch is probed by the readiness check.
	Branch string
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	branch := deps.Branch
	if branch == "" {
		branch = "main"
	}
	return &Server{
		templates: deps.Templates,
		store:     deps.Store,
		branch:    branch,
	}
}

// actorFromCtx returns the authenticated username, or "" so the service
// falls back to its configured default actor.
func actorFromCtx(c *gin.Context) string {
	ctx := c.Request.Context()
	if name := middleware.GetUsername(ctx); name != "" {
		return name
	}
	return middleware.GetUserID(ctx)
}
