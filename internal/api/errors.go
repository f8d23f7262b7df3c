package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/store"
)

// internalMessage replaces the message of unexpected errors.
const internalMessage = "Internal server error"

// ErrorBody is the machine-readable part of an error response.
type ErrorBody struct {
	Code    string `json:"code" doc:"Machine-readable error code"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// APIError is the error envelope. It implements huma.StatusError so huma
// writes it with the right status.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Success bool      `json:"success" doc:"Always false"`
	Message string    `json:"message" doc:"Human-readable error message"`
	Body    ErrorBody `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// errorMapper turns handler and framework errors into APIErrors.
type errorMapper struct {
	production bool
	logger     *slog.Logger
}

// register installs the mapper as huma's error constructor. Call it after
// creating the huma.API but before registering routes.
func (m *errorMapper) register() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return m.fromStatus(status, message, errs...)
	}
}

// fromError converts any error returned by a handler.
func (m *errorMapper) fromError(status int, err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		if domainErr.Code == domainerrors.CodeInternal {
			return m.internal(err)
		}
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Message: domainErr.Message,
			Body:    ErrorBody{Code: string(domainErr.Code), Details: domainErr.Details},
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		switch {
		case store.IsNotFound(err):
			return &APIError{
				status:  http.StatusNotFound,
				Message: storeErr.Error(),
				Body:    ErrorBody{Code: string(domainerrors.CodeNotFound)},
			}
		case store.IsAlreadyExists(err):
			return &APIError{
				status:  http.StatusConflict,
				Message: storeErr.Error(),
				Body:    ErrorBody{Code: string(domainerrors.CodeAlreadyExists)},
			}
		}
	}

	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.GetStatus()
	}
	if status >= http.StatusInternalServerError || status < http.StatusBadRequest {
		return m.internal(err)
	}
	return &APIError{
		status:  status,
		Message: err.Error(),
		Body:    ErrorBody{Code: statusToCode(status)},
	}
}

// fromStatus builds the error for a status and message produced by huma
// itself (request validation, unknown routes) or for a plain handler error.
func (m *errorMapper) fromStatus(status int, message string, errs ...error) *APIError {
	var details []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			d := detailer.ErrorDetail()
			details = append(details, d.Location+": "+d.Message)
			continue
		}
		return m.fromError(status, err)
	}

	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		return m.internal(errors.New(message))
	}

	apiErr := &APIError{
		status:  status,
		Message: message,
		Body:    ErrorBody{Code: statusToCode(status)},
	}
	if len(details) > 0 {
		apiErr.Body.Details = details
	}
	return apiErr
}

// internal logs err and hides it outside development.
func (m *errorMapper) internal(err error) *APIError {
	m.logger.Error("unexpected error", "error", err)
	apiErr := &APIError{
		status:  http.StatusInternalServerError,
		Message: internalMessage,
		Body:    ErrorBody{Code: string(domainerrors.CodeInternal)},
	}
	if !m.production {
		apiErr.Body.Details = err.Error()
	}
	return apiErr
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
