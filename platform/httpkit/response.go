// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"net/http"

	"salescrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// PartialResponse is returned when the primary mutation committed but a
// dependent step failed. Clients retry only FailedStep.
type PartialResponse struct {
	Data       interface{} `json:"data"`
	FailedStep string      `json:"failedStep"`
	Error      string      `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// StatusClientClosedRequest is reported when the caller went away before the
// operation started.
const StatusClientClosedRequest = 499

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values anywhere in the chain pick the status code;
// bare context errors map to 499/504; anything else is an internal error.
// Returns true if an error was handled.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		if domainErr.Kind == apperr.KindPartialFailure {
			c.JSON(domainErr.HTTPStatus(), PartialResponse{
				Data:       domainErr.Details,
				FailedStep: domainErr.Step,
				Error:      publicMessage(domainErr.Err, domainErr.Message),
			})
			return true
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   publicMessage(domainErr, domainErr.Message),
			Details: domainErr.Details,
		})
		return true
	}

	switch {
	case errors.Is(err, context.Canceled):
		c.AbortWithStatusJSON(StatusClientClosedRequest, ErrorResponse{Error: "request cancelled"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: http.StatusText(http.StatusGatewayTimeout)})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
	return true
}

// publicMessage is the client-safe text for err. Storage and internal causes,
// and untyped errors, never expose their driver text.
func publicMessage(err error, fallback string) string {
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		return fallback
	}
	switch domainErr.Kind {
	case apperr.KindStorage, apperr.KindInternal, apperr.KindConfiguration, apperr.KindUnknown:
		return http.StatusText(domainErr.HTTPStatus())
	case apperr.KindPartialFailure:
		return fallback
	}
	return domainErr.Message
}
