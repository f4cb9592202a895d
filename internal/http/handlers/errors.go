package handlers

// Error codes carried in ErrorResponse.Code. Middleware writes some of them
// directly (noted below); the strings must stay in sync.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized" // Auth, 401
	ErrCodeForbidden        = "forbidden"    // RequireOrganizer, 403
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited" // RateLimiter, 429
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeValidation            = "validation_failed"      // 400 with ErrorResponse.Fields
	ErrCodeVotingClosed          = "voting_closed"          // 403 outside the voting window
	ErrCodePickAgain             = "pick_again"             // 409, selection lost a race
	ErrCodeConferenceUnavailable = "conference_unavailable" // ConferenceContext, 503
	ErrCodeNoConductContact      = "conduct_contact_missing"
)
