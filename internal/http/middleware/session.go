// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file keeps the voter's current category in a cookie so that casting a
// vote can point at the next selection in the same category.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// VotingCategoryCookie names the cookie holding the current category id.
const VotingCategoryCookie = "voting_category"

// SetVotingCategory remembers categoryID for the voter's next requests.
func SetVotingCategory(c *gin.Context, categoryID uint) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(VotingCategoryCookie, strconv.FormatUint(uint64(categoryID), 10), 0, "/", "", isHTTPS(c.Request), true)
}

// ClearVotingCategory forgets the current category.
func ClearVotingCategory(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(VotingCategoryCookie, "", -1, "/", "", isHTTPS(c.Request), true)
}

// VotingCategory returns the remembered category id.
func VotingCategory(c *gin.Context) (uint, bool) {
	raw, err := c.Cookie(VotingCategoryCookie)
	if err != nil || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
