// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log. It never logs bodies.
// Query strings, header values and unmatched paths are scrubbed of e-mail
// addresses, phone numbers and UUIDs (vote public ids are UUIDs).
// Credentials and the voting cookie are masked outright. Voters appear only
// as a short one-way reference, so the access log can correlate one voter's
// requests without naming who cast which ballot.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds header names (case-insensitive) whose values are
// replaced with "[REDACTED]" on top of Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

// Pattern order matters: UUIDs go first so the loose phone pattern cannot eat
// their digit groups.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// voterRef is a stable, non-reversible handle for a voter id.
func voterRef(uid string) string {
	if uid == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(uid))
	return hex.EncodeToString(sum[:6])
}

func maskSet(extra []string) map[string]bool {
	m := map[string]bool{"authorization": true, "cookie": true, "set-cookie": true}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = true
		}
	}
	return m
}

func safeHeaders(h http.Header, mask map[string]bool) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if mask[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger attaches the request-scoped logger (request_id, method,
// path) and writes one "http_request" line per request: INFO below 400, WARN
// for 4xx and ERROR for 5xx. The path is the route template when one matched
// and the scrubbed raw path otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := maskSet(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = scrub(c.Request.URL.Path)
		}
		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, &scoped)

		query := scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		headers := safeHeaders(c.Request.Header, mask)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		default:
			ev = scoped.Info()
		}
		if ref := voterRef(userIDFromCtx(c)); ref != "" {
			ev = ev.Str("voter", ref)
		}
		if e := c.GetString(ctxKeyVotingEvent); e != "" {
			ev = ev.Str("event", e)
		}
		ev.Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
