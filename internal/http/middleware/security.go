// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets the response hardening headers for the JSON API. Ballots and
// summaries are per voter, so routes under a private prefix are marked
// private and vary on every header that carries the voter's identity.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// identityHeaders are the request headers a voter can be identified by.
var identityHeaders = []string{"Authorization", "Cookie", headerUserID}

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	// Enable it only when the proxy-to-app hop is HTTPS too.
	EnableHSTS bool
	HSTSMaxAge time.Duration // <= 0 means 180 days

	// NoStore forbids caching everywhere and takes precedence over
	// PrivatePrefixes.
	NoStore bool

	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool

	// PrivatePrefixes are path prefixes (e.g. "/api/v1/vote") answered with
	// Cache-Control: private, no-cache, so ETag revalidation keeps working.
	PrivatePrefixes []string
}

// SecurityHeaders writes nosniff, DENY framing and no-referrer on every
// response, plus the optional headers selected by opt. X-Request-ID is added
// to Access-Control-Expose-Headers once.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch {
		case opt.NoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case hasAnyPrefix(c.Request.URL.Path, opt.PrivatePrefixes):
			h.Set("Cache-Control", "private, no-cache")
			for _, v := range identityHeaders {
				addToken(h, "Vary", v)
			}
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			addToken(h, "Access-Control-Expose-Headers", requestIDHeader)
		}

		c.Next()
	}
}

// addToken appends tok to the comma-separated header key unless a
// case-insensitive equal token is already listed.
func addToken(h http.Header, key, tok string) {
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, tok)
		return
	}
	for _, t := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tok) {
			return
		}
	}
	h.Set(key, cur+", "+tok)
}

// isHTTPS reports a TLS connection or X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
