// Package gserr defines the service's error taxonomy. Validation errors
// carry user-correctable messages shown verbatim; not-found and permission
// errors map to their HTTP statuses; everything else is internal and only
// a generic message leaves the process.
package gserr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a user-correctable input problem. Its message is
// always safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError marks an unknown repository id or resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// PermissionError marks a request whose credentials do not cover the
// target repository.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// Permissionf builds a PermissionError with a formatted message.
func Permissionf(format string, args ...any) error {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsPermission reports whether err is (or wraps) a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// HTTPStatus maps an error onto its HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsPermission(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to surface to the client. The
// taxonomy errors speak for themselves; internal errors are masked.
func ClientMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsValidation(err) || IsNotFound(err) || IsPermission(err) {
		return err.Error()
	}
	return "Internal server error."
}
