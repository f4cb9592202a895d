// Package services defines the business logic of the voting engine: candidate
// selection, vote casting, skip reclamation, organizer statistics and
// code-of-conduct reports. This file centralizes service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into HTTP status codes is performed by the handler layer.
package services

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gate errors.
var (
	// ErrVotingClosed is returned when the conference has no voting window or
	// the current instant falls outside it.
	ErrVotingClosed = errors.New("voting is not open")
)

// Lookup errors.
var (
	// ErrCategoryNotFound indicates that the category does not exist in the
	// current conference.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrVoteNotFound indicates that no vote with the given public id belongs
	// to the current voter.
	ErrVoteNotFound = errors.New("vote not found")

	// ErrTalkNotFound indicates that the referenced talk does not exist.
	ErrTalkNotFound = errors.New("talk not found")

	// ErrReportNotFound indicates that no conduct report has the given id.
	ErrReportNotFound = errors.New("conduct report not found")
)

// Validation errors.
var (
	// ErrInvalidAction is returned when a cast action is neither "vote" nor "skip".
	ErrInvalidAction = errors.New(`action must be "vote" or "skip"`)

	// ErrMissingVoteValue is returned when a "vote" action carries no value.
	ErrMissingVoteValue = errors.New("vote value is required")

	// ErrInvalidVoteValue is returned when a vote value is not -1, 0 or 1.
	ErrInvalidVoteValue = errors.New("vote value must be -1, 0 or 1")

	// ErrEmptyReport is returned when a conduct report has no text.
	ErrEmptyReport = errors.New("report text is empty")

	// ErrReportTooLong is returned when a conduct report exceeds the limit.
	ErrReportTooLong = errors.New("report text too long")
)

// Transient and configuration errors.
var (
	// ErrSelectionConflict is returned when every selection attempt lost a
	// reservation race. Callers should simply ask again.
	ErrSelectionConflict = errors.New("selection conflicted with a concurrent request, pick again")

	// ErrNoConductContact is returned when the conference has no conduct
	// email to notify.
	ErrNoConductContact = errors.New("conference has no code of conduct contact")
)

// IsValidation reports whether err is caused by invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrMissingVoteValue) ||
		errors.Is(err, ErrInvalidVoteValue) ||
		errors.Is(err, ErrEmptyReport) ||
		errors.Is(err, ErrReportTooLong)
}

// traceErr marks span as failed unless err is nil or a caller mistake.
func traceErr(span trace.Span, err error) {
	if err == nil || IsValidation(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
