// Organizer HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/repo"
)

// TalkStatsResponse is one row of the organizer scoreboard.
type TalkStatsResponse struct {
	ID        uint   `json:"id" example:"42"`
	Title     string `json:"title" example:"Scaling a monolith"`
	State     string `json:"state" example:"proposed"`
	VoteCount int64  `json:"vote_count" example:"9"`
	VoteScore int64  `json:"vote_score" example:"4"`
}

// ListTalkStatsResponse wraps the scoreboard.
type ListTalkStatsResponse struct {
	Talks []TalkStatsResponse `json:"talks"`
}

// TalkStats godoc
// @ID          talkStats
// @Summary     Vote totals per talk
// @Description Lists the conference's categorized talks with vote count and score, best scored first.
// @Tags        Admin
// @Produce     json
//
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListTalkStatsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Organizer role required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/talks/stats [get]
func (h *Handlers) TalkStats(c *gin.Context) {
	rows, err := h.stats.TalkStats(c.Request.Context(), conference(c))
	if err != nil {
		failService(c, err)
		return
	}
	out := make([]TalkStatsResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toTalkStats(r))
	}
	ok(c, http.StatusOK, ListTalkStatsResponse{Talks: out})
}

// TalkStat godoc
// @ID          talkStat
// @Summary     Vote totals of one talk
// @Tags        Admin
// @Produce     json
//
// @Security    BearerAuth
//
// @Param       id   path      int  true  "Talk ID"
// @Success     200  {object}  handlers.TalkStatsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid talk id"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Organizer role required"
// @Failure     404  {object}  handlers.ErrorResponse  "Talk not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/talks/{id}/stats [get]
func (h *Handlers) TalkStat(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	st, err := h.stats.Talk(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, toTalkStats(*st))
}

func toTalkStats(r repo.TalkStats) TalkStatsResponse {
	return TalkStatsResponse{
		ID:        r.TalkID,
		Title:     r.Title,
		State:     r.State,
		VoteCount: r.VoteCount,
		VoteScore: r.VoteScore,
	}
}
