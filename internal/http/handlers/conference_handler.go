package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ConferenceStatusResponse tells clients which activities are open.
type ConferenceStatusResponse struct {
	Name             string     `json:"name" example:"GopherCon EU"`
	Now              time.Time  `json:"now"`
	ProposalsBegin   *time.Time `json:"proposals_begin,omitempty"`
	ProposalsEnd     *time.Time `json:"proposals_end,omitempty"`
	VotingBegin      *time.Time `json:"voting_begin,omitempty"`
	VotingEnd        *time.Time `json:"voting_end,omitempty"`
	VotingOpen       bool       `json:"voting_open" example:"true"`
	VotingUpcoming   bool       `json:"voting_upcoming" example:"false"`
	ProposalsOpen    bool       `json:"proposals_open" example:"false"`
	EditingProposals bool       `json:"editing_proposals" example:"false"`
}

// ConferenceStatus godoc
// @ID          conferenceStatus
// @Summary     Conference windows
// @Description Reports the proposal and voting windows and which of them are open now. Talk edits are frozen while voting runs.
// @Tags        Conference
// @Produce     json
// @Success     200  {object}  handlers.ConferenceStatusResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Conference unavailable"
// @Router      /conference [get]
func (h *Handlers) ConferenceStatus(c *gin.Context) {
	conf := conference(c)
	p := h.vote.Phase(conf)
	ok(c, http.StatusOK, ConferenceStatusResponse{
		Name:             conf.Name,
		Now:              p.At,
		ProposalsBegin:   conf.ProposalsBegin,
		ProposalsEnd:     conf.ProposalsEnd,
		VotingBegin:      conf.VotingBegin,
		VotingEnd:        conf.VotingEnd,
		VotingOpen:       p.VotingOpen,
		VotingUpcoming:   p.VotingUpcoming,
		ProposalsOpen:    p.ProposalsOpen,
		EditingProposals: p.EditingProposals,
	})
}
