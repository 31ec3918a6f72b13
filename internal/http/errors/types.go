package errors

import (
	"fmt"
	"net/http"
)

// AppError es el error estándar que los controllers escriben al cliente.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, sólo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError convierte un error genérico en AppError; si no lo es, INTERNAL con la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// WithDetail devuelve una COPIA con detail, para no mutar los errores base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrNoChanges = &AppError{
		Code:       "NO_CHANGES",
		Message:    "No changes provided",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "Request body is not valid JSON",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidBBox = &AppError{
		Code:       "INVALID_BBOX",
		Message:    "Invalid bounding box",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "Invalid path or query parameter",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "Request body too large",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

var (
	ErrUnauthenticated = &AppError{
		Code:       "UNAUTHENTICATED",
		Message:    "Not authenticated",
		HTTPStatus: http.StatusUnauthorized,
	}
)

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}
)

var (
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

var (
	ErrInternal = &AppError{
		Code:       "INTERNAL",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrLedgerWrite = &AppError{
		Code:       "LEDGER_WRITE_FAILED",
		Message:    "Changes were sent to OpenStreetMap but could not be recorded locally",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrRemote = &AppError{
		Code:       "REMOTE_ERROR",
		Message:    "OpenStreetMap request failed",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
