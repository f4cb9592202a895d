// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers. Every failure is an ErrorResponse
// with a stable code from errors.go; service sentinels are translated in one
// table so a status never depends on which handler saw the error. 5xx
// responses are logged through the request-scoped logger.
//
//	HTTP/1.1 403 Forbidden
//	{"request_id": "123e4567-e89b-12d3-a456-426614174000", "code": "voting_closed", "message": "voting is not open"}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/services"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Offending input fields, for validation failures
	Fields map[string]string `json:"fields,omitempty"`
}

func fail(c *gin.Context, status int, code, msg string) {
	failFields(c, status, code, msg, nil)
}

// failFields aborts with the envelope; fields name the offending inputs.
func failFields(c *gin.Context, status int, code, msg string, fields map[string]string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
		Fields:    fields,
	})
}

// Fail lets the router answer with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// serviceError maps a service sentinel to its response. A non-empty field
// marks a validation error on that input.
type serviceError struct {
	err    error
	status int
	code   string
	field  string
}

var serviceErrors = []serviceError{
	{services.ErrInvalidAction, http.StatusBadRequest, ErrCodeValidation, "action"},
	{services.ErrMissingVoteValue, http.StatusBadRequest, ErrCodeValidation, "value"},
	{services.ErrInvalidVoteValue, http.StatusBadRequest, ErrCodeValidation, "value"},
	{services.ErrEmptyReport, http.StatusBadRequest, ErrCodeValidation, "text"},
	{services.ErrReportTooLong, http.StatusBadRequest, ErrCodeValidation, "text"},
	{services.ErrVotingClosed, http.StatusForbidden, ErrCodeVotingClosed, ""},
	{services.ErrCategoryNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrVoteNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrTalkNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrReportNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrSelectionConflict, http.StatusConflict, ErrCodePickAgain, ""},
	{services.ErrNoConductContact, http.StatusServiceUnavailable, ErrCodeNoConductContact, ""},
}

// failService answers with the mapping of err. Unmapped errors become an
// opaque 500 and are logged with their text.
func failService(c *gin.Context, err error) {
	for _, se := range serviceErrors {
		if !errors.Is(err, se.err) {
			continue
		}
		var fields map[string]string
		if se.field != "" {
			fields = map[string]string{se.field: err.Error()}
		}
		failFields(c, se.status, se.code, err.Error(), fields)
		return
	}
	_ = c.Error(err)
	middleware.LoggerFrom(c).Error().Err(err).Msg("service failure")
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
