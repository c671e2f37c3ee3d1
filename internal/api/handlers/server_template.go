package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/service"
)

// templateRequest is the body of POST /api/templates and PUT /api/templates/:id.
type templateRequest struct {
	Name         string `json:"name"`
	Content      string `json:"content"`
	Department   string `json:"department"`
	AppCode      string `json:"appCode"`
	Instructions string `json:"instructions"`
	Examples     []any  `json:"examples"`
}

func (r templateRequest) input() service.TemplateInput {
	return service.TemplateInput{
		Name:         r.Name,
		Content:      r.Content,
		Department:   r.Department,
		AppCode:      r.AppCode,
		Instructions: r.Instructions,
		Examples:     r.Examples,
	}
}

type deleteRequest struct {
	RequestComment string `json:"requestComment"`
}

type deleteResponse struct {
	Success bool `json:"success"`
	*domain.DeleteResult
}

func bindTemplateRequest(c *gin.Context) (templateRequest, bool) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body must be a JSON template object"))
		return req, false
	}
	return req, true
}

// CreateTemplate handles POST /api/templates.
func (s *Server) CreateTemplate(c *gin.Context) {
	req, ok := bindTemplateRequest(c)
	if !ok {
		return
	}

	res, err := s.templates.Create(c.Request.Context(), actorFromCtx(c), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"filePath": res.FilePath,
		"template": res.Template,
	})
}

// ListTemplates handles GET /api/templates.
func (s *Server) ListTemplates(c *gin.Context) {
	items, err := s.templates.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetTemplate handles GET /api/templates/:id.
func (s *Server) GetTemplate(c *gin.Context) {
	t, err := s.templates.FetchByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTemplate handles PUT /api/templates/:id.
func (s *Server) UpdateTemplate(c *gin.Context) {
	req, ok := bindTemplateRequest(c)
	if !ok {
		return
	}

	t, err := s.templates.Update(c.Request.Context(), actorFromCtx(c), c.Param("id"), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTemplate handles DELETE /api/templates/:id. The body is optional.
func (s *Server) DeleteTemplate(c *gin.Context) {
	var req deleteRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body must be a JSON object"))
			return
		}
	}

	res, err := s.templates.Delete(c.Request.Context(), actorFromCtx(c), c.Param("id"), req.RequestComment)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deleteResponse{Success: true, DeleteResult: res})
}

// GetTemplateHistory handles GET /api/templates/:id/history.
func (s *Server) GetTemplateHistory(c *gin.Context) {
	history, err := s.templates.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}
