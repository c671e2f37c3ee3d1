package errors

import (
	"net/http"
	"strings"
)

// Validation error codes.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeTemplateIDInvalid = "TEMPLATE_ID_INVALID"
	CodeFieldRequired     = "REQUIRED"
	CodeFieldInvalid      = "INVALID"
	CodeInvalidRequest    = "INVALID_REQUEST"
)

// Lookup error codes.
const (
	CodeDepartmentNotFound = "DEPARTMENT_NOT_FOUND"
	CodeAppCodeNotFound    = "APP_CODE_NOT_FOUND"
	CodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
)

// Remote store error codes.
const (
	CodeStoreUnauthorized = "STORE_UNAUTHORIZED"
	CodeStoreConflict     = "STORE_CONFLICT"
	CodeStoreError        = "STORE_ERROR"
	CodeNotSupported      = "NOT_SUPPORTED"
)

// Auth error codes for inbound requests.
const (
	CodeUnauthorized = "UNAUTHORIZED"
)

// ErrMissingFields creates the validation error reported when required
// request fields are absent or blank.
func ErrMissingFields(fields ...string) *AppError {
	fieldErrors := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   f,
			Code:    CodeFieldRequired,
			Message: f + " is required",
		})
	}
	return New(
		CodeValidationFailed,
		"missing required fields: "+strings.Join(fields, ", "),
		http.StatusBadRequest,
	).WithFieldErrors(fieldErrors)
}

// ErrInvalidFields creates the validation error for a mix of missing and
// malformed request fields.
func ErrInvalidFields(fieldErrors []FieldError) *AppError {
	names := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		names = append(names, fe.Field)
	}
	return New(
		CodeValidationFailed,
		"invalid fields: "+strings.Join(names, ", "),
		http.StatusBadRequest,
	).WithFieldErrors(fieldErrors)
}

// ErrInvalidTemplateID creates the error for ids that do not decode.
func ErrInvalidTemplateID(id string) *AppError {
	return BadRequest(CodeTemplateIDInvalid, "invalid template id: "+id)
}

// ErrDepartmentNotFound creates a department not found error.
func ErrDepartmentNotFound(department string) *AppError {
	return NotFound(CodeDepartmentNotFound, "department not found: "+department)
}

// ErrAppCodeNotFound creates an app code not found error.
func ErrAppCodeNotFound(department, appCode string) *AppError {
	return NotFound(CodeAppCodeNotFound, "app code not found: "+department+"/"+appCode)
}

// ErrTemplateNotFound creates a template not found error.
func ErrTemplateNotFound(id string) *AppError {
	return NotFound(CodeTemplateNotFound, "template not found: "+id)
}
