package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// AppError is an error that knows which HTTP status it should be reported with.
type AppError struct {
	StatusCode int
	Message    string
}

func NewAppError(msg string, statusCode int) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return &AppError{StatusCode: statusCode, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return NewAppError(msg, http.StatusNotFound)
}

func NewConflictError(msg string) *AppError {
	return NewAppError(msg, http.StatusConflict)
}

func (err *AppError) Error() string {
	return err.Message
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "invalid data"
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
