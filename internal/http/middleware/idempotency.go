// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file handles the Idempotency-Key header. IdempotencyValidator
// validates the key, derives the scope it lives in and, for identified
// callers, asks a lookup whether the same (voter, scope, key) already
// completed. A hit is stashed as a Replay so the handler can answer from the
// stored resource, and the rate limiter lets the replay through for free.
// Persisting new results stays with the handler.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's key for an unsafe request.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // Replay
	ctxKeyRateBypass = "rate.bypass" // bool

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay is the stored outcome of an earlier request with the same key.
type Replay struct {
	ResourceID string
	Status     int
}

// IdempotencyLookup returns the stored outcome for (userID, scope, key) that
// is still valid at now, or nil when there is none. Errors are logged and
// the request proceeds as a first attempt.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (*Replay, error)

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	MaxLen  int            // <= 0 means 200
	Pattern *regexp.Regexp // nil means ^[A-Za-z0-9._~\-:]+$
	// Scope names the namespace a key lives in; defaults to RouteScope.
	Scope func(*gin.Context) string
}

// RouteScope scopes keys by matched route and its :id parameter, so the same
// key sent for two talks is two operations.
func RouteScope(c *gin.Context) string {
	return c.FullPath() + "#" + c.Param("id")
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// GetIdempotencyScope returns the scope of the key, e.g.
// "/api/v1/talks/:id/conduct-reports#42", or "" without a key.
func GetIdempotencyScope(c *gin.Context) string {
	return c.GetString(ctxKeyIdemScope)
}

// ReplayOf returns the stored outcome found for this request's key.
func ReplayOf(c *gin.Context) (Replay, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return Replay{}, false
	}
	r, ok := v.(Replay)
	return r, ok
}

// IdempotencyValidator is a no-op without the header. A malformed key is
// rejected with 400 bad_idempotency_key. Anonymous callers never replay
// because stored outcomes are keyed by voter.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = RouteScope
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		scope := scopeOf(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if uid := userIDFromCtx(c); lookup != nil && uid != "" {
			rep, err := lookup(c.Request.Context(), uid, scope, key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			case rep != nil:
				c.Set(ctxKeyIdemReplay, *rep)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// userIDFromCtx returns the voter id set by Auth, or "".
func userIDFromCtx(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
