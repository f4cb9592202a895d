// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. With a signing secret configured,
// identities come from HS256 bearer tokens: "sub" is the user id and a boolean
// "organizer" claim grants access to organizer routes. Without a secret
// (development), the X-User-ID and X-Organizer headers are trusted as-is.
//
// Auth never rejects anonymous requests on its own; RequireUser and
// RequireOrganizer guard the routes that need an identity.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserIDKey is the Gin context key holding the caller's user id.
	UserIDKey = "userID"
	// organizerKey is the Gin context key holding the organizer flag.
	organizerKey = "organizer"

	headerUserID    = "X-User-ID"
	headerOrganizer = "X-Organizer"
)

// Claims is the token payload accepted by Auth.
type Claims struct {
	Organizer bool `json:"organizer,omitempty"`
	jwt.RegisteredClaims
}

// AuthOptions configures Auth.
type AuthOptions struct {
	// Secret is the HS256 signing key. Empty enables header identities.
	Secret []byte
}

// Auth returns a middleware that stores the caller's user id and organizer
// flag in the Gin context. A present but invalid bearer token is rejected
// with 401.
func Auth(opts AuthOptions) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFn := func(*jwt.Token) (any, error) { return opts.Secret, nil }

	return func(c *gin.Context) {
		if len(opts.Secret) == 0 {
			if uid := strings.TrimSpace(c.GetHeader(headerUserID)); uid != "" {
				c.Set(UserIDKey, uid)
				c.Set(organizerKey, strings.EqualFold(c.GetHeader(headerOrganizer), "true"))
			}
			c.Next()
			return
		}

		raw, found := bearerToken(c.GetHeader("Authorization"))
		if !found {
			c.Next()
			return
		}
		var claims Claims
		tok, err := parser.ParseWithClaims(raw, &claims, keyFn)
		if err != nil || !tok.Valid || claims.Subject == "" {
			if err == nil {
				err = errors.New("token has no subject")
			}
			LoggerFrom(c).Debug().Err(err).Msg("rejected bearer token")
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}
		c.Set(UserIDKey, claims.Subject)
		c.Set(organizerKey, claims.Organizer)
		c.Next()
	}
}

// RequireUser rejects requests without an identity with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireOrganizer rejects anonymous requests with 401 and non-organizers
// with 403.
func RequireOrganizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !IsOrganizer(c) {
			abortAuth(c, http.StatusForbidden, "forbidden", "organizer role required")
			return
		}
		c.Next()
	}
}

// UserID returns the caller's user id, or "" when anonymous.
func UserID(c *gin.Context) string { return userIDFromCtx(c) }

// IsOrganizer reports whether the caller carries the organizer role.
func IsOrganizer(c *gin.Context) bool {
	v, _ := c.Get(organizerKey)
	b, _ := v.(bool)
	return b
}

// SignToken issues an HS256 token for userID. A positive ttl sets the
// expiry; zero issues a token that never expires.
func SignToken(secret []byte, userID string, organizer bool, ttl time.Duration) (string, error) {
	claims := Claims{
		Organizer:        organizer,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	if ttl > 0 {
		now := time.Now()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
