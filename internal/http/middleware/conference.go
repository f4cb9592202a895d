// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file loads the conference every request operates on. The row is read
// on each request so window changes made by organizers apply immediately.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

const ctxKeyConference = "conference"

// ConferenceLoader fetches the current conference.
type ConferenceLoader func(ctx context.Context) (*domain.Conference, error)

// ConferenceContext stores the loaded conference in the Gin context. When it
// cannot be loaded the request fails with 503 conference_unavailable.
func ConferenceContext(load ConferenceLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := load(c.Request.Context())
		if err != nil || conf == nil {
			LoggerFrom(c).Error().Err(err).Msg("conference not loaded")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "conference_unavailable",
				"message":    "conference is not configured",
			})
			return
		}
		c.Set(ctxKeyConference, conf)
		c.Next()
	}
}

// Conference returns the conference stored by ConferenceContext, or nil.
func Conference(c *gin.Context) *domain.Conference {
	v, _ := c.Get(ctxKeyConference)
	conf, _ := v.(*domain.Conference)
	return conf
}
