// Package middleware provides HTTP middleware for prompthub.
//
// Import Path: prompthub.io/prompthub/internal/api/middleware
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
)

// CodeInternalError is returned for errors that are not an AppError.
const CodeInternalError = "INTERNAL_ERROR"

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success     bool                   `json:"success"`
	Error       string                 `json:"error"`
	Code        string                 `json:"code"`
	FieldErrors []apperrors.FieldError `json:"fieldErrors,omitempty"`
}

// ErrorHandler is a Gin middleware that provides centralized error handling.
// It captures errors added via c.Error() and returns a consistent JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.ForRequest(GetRequestID(c.Request.Context()))

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.HTTPStatus),
				zap.Error(appErr.Err),
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				log.Error("Request failed", fields...)
			} else {
				log.Warn("Request error", fields...)
			}
			c.JSON(appErr.HTTPStatus, ErrorResponse{
				Error:       appErr.Message,
				Code:        appErr.Code,
				FieldErrors: appErr.FieldErrors,
			})
			return
		}

		log.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "An internal error occurred",
			Code:  CodeInternalError,
		})
	}
}

// abortWithError writes the error envelope from middleware that stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
