// Package apperr defines typed application errors that carry an HTTP status,
// a stable machine code and a Spanish message suitable for the dashboard UI.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ID != "" {
		return fmt.Sprintf("%s con ID %s no encontrado", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s no encontrado", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }
func (e *NotFoundError) Code() string    { return "NOT_FOUND" }

// NotFound creates a new NotFoundError
func NotFound(resource string, id any) *NotFoundError {
	s := ""
	if id != nil {
		s = fmt.Sprint(id)
	}
	return &NotFoundError{Resource: resource, ID: s}
}

// Missing creates a NotFoundError with a custom message, for things that
// are absent rather than looked up by id.
func Missing(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

// ValidationError represents invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Dato inválido en '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("Datos inválidos: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int { return http.StatusUnprocessableEntity }
func (e *ValidationError) Code() string    { return "VALIDATION_ERROR" }

// Validation creates a new ValidationError
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BadRequestError represents a malformed request (bad JSON, bad query string).
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string   { return e.Message }
func (e *BadRequestError) HTTPStatus() int { return http.StatusBadRequest }
func (e *BadRequestError) Code() string    { return "BAD_REQUEST" }

// BadRequest creates a new BadRequestError
func BadRequest(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

// ConflictError represents a conflict with existing data or stock
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string   { return e.Message }
func (e *ConflictError) HTTPStatus() int { return http.StatusConflict }
func (e *ConflictError) Code() string    { return "CONFLICT" }

// Conflict creates a new ConflictError with a formatted message
func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError represents authentication failures
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "No autorizado"
}

func (e *UnauthorizedError) HTTPStatus() int { return http.StatusUnauthorized }
func (e *UnauthorizedError) Code() string    { return "UNAUTHORIZED" }

// Unauthorized creates a new UnauthorizedError
func Unauthorized(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// PermissionError represents insufficient permissions
type PermissionError struct {
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("Permiso denegado: no puede %s %s", e.Action, e.Resource)
}

func (e *PermissionError) HTTPStatus() int { return http.StatusForbidden }
func (e *PermissionError) Code() string    { return "PERMISSION_DENIED" }

// Permission creates a new PermissionError
func Permission(action, resource string) *PermissionError {
	return &PermissionError{Action: action, Resource: resource}
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// HTTPStatus returns the HTTP status code for an error.
// Returns 500 if the error doesn't implement AppError.
func HTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Body is the JSON error payload returned to clients.
type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ToBody converts an error to its client representation. Errors that are not
// AppErrors are reported generically so internals never leak.
func ToBody(err error) Body {
	var appErr AppError
	if !errors.As(err, &appErr) {
		return Body{Code: "INTERNAL_ERROR", Message: "Error interno del servidor"}
	}
	b := Body{Code: appErr.Code(), Message: appErr.Error()}
	var v *ValidationError
	if errors.As(err, &v) {
		b.Field = v.Field
	}
	return b
}
