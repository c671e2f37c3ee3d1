package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("TEMPLATE_NOT_FOUND", "template not found", http.StatusNotFound),
			want: "TEMPLATE_NOT_FOUND: template not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("dial tcp: refused"), "STORE_ERROR", "remote store failure", http.StatusInternalServerError),
			want: "STORE_ERROR: remote store failure: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := Wrap(ErrUnauthorized, CodeStoreUnauthorized, "rejected", http.StatusUnauthorized)

	require.True(t, errors.Is(appErr, ErrUnauthorized))
}

func TestIsAppError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrTemplateNotFound("HR-ABC-Policy-Doc"))

	got, ok := IsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeTemplateNotFound, got.Code)

	_, ok = IsAppError(errors.New("plain"))
	require.False(t, ok)
}

func TestErrMissingFields(t *testing.T) {
	err := ErrMissingFields("name", "appCode")

	require.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	require.Equal(t, CodeValidationFailed, err.Code)
	require.Equal(t, "missing required fields: name, appCode", err.Message)
	require.Len(t, err.FieldErrors, 2)
	require.Equal(t, "appCode", err.FieldErrors[1].Field)
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("UA", "unauthorized"), http.StatusUnauthorized},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError},
		{"NotImplemented", NotImplemented("NI", "not implemented"), http.StatusNotImplemented},
		{"DepartmentNotFound", ErrDepartmentNotFound("HR"), http.StatusNotFound},
		{"AppCodeNotFound", ErrAppCodeNotFound("HR", "ABC"), http.StatusNotFound},
		{"InvalidTemplateID", ErrInvalidTemplateID("x"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
		})
	}
}
