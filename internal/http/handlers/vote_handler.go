// Voting HTTP handlers.
//
// This file exposes the voter-facing endpoints:
//   - GET  /vote/categories              (category menu with remaining counts)
//   - POST /vote/categories/{id}/next    (select or resume the next talk)
//   - GET  /vote/cast/{public_id}        (anonymized talk behind a reservation)
//   - POST /vote/cast/{public_id}        (vote or skip)
//   - POST /vote/clear-skipped           (release skipped talks)
//   - GET  /vote/summary                 (paginated history, ETag support)
//
// Handlers are transport-thin: they parse input, call the VotingService and
// translate outcomes into HTTP responses. The current category lives in a
// cookie so a cast can point the client at the next selection.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/services"
)

//
// DTOs
//

// CategoryResponse is one entry of the voting menu.
type CategoryResponse struct {
	ID          uint   `json:"id" example:"3"`
	Name        string `json:"name" example:"backend"`
	DisplayName string `json:"display_name" example:"Backend"`
	// Remaining counts talks the voter has not given a value yet.
	Remaining int64 `json:"remaining" example:"12"`
}

// ListCategoriesResponse wraps the voting menu.
type ListCategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// NextTalkResponse describes the result of a selection.
type NextTalkResponse struct {
	// Outcome is "selected", "exhausted" or "skips_reclaimed".
	Outcome    string `json:"outcome" example:"selected"`
	CategoryID uint   `json:"category_id" example:"3"`
	PublicID   string `json:"public_id,omitempty" example:"5b0c1c9e-3f0a-4d7e-9a55-1f1d3c2b9e10"`
	Resumed    bool   `json:"resumed,omitempty"`
	Reclaimed  int64  `json:"reclaimed,omitempty"`
	// Location points at the ballot when a talk was selected.
	Location string `json:"location,omitempty" example:"/api/v1/vote/cast/5b0c1c9e-3f0a-4d7e-9a55-1f1d3c2b9e10"`
}

// TalkView is the anonymized talk shown to voters.
type TalkView struct {
	Title       string `json:"title" example:"Scaling a monolith"`
	Description string `json:"description"`
	Length      int    `json:"length" example:"30"`
}

// BallotResponse is a vote with the talk it is about.
type BallotResponse struct {
	PublicID  string    `json:"public_id"`
	Status    string    `json:"status" example:"pending"`
	Value     *int      `json:"value"`
	Talk      TalkView  `json:"talk"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CastVoteRequest is the JSON payload for a decision.
type CastVoteRequest struct {
	// Action is "vote" or "skip".
	Action string `json:"action" example:"vote"`
	// Value is required for "vote": -1, 0 or 1.
	Value *int `json:"value" example:"1"`
}

// CastVoteResponse returns the stored decision and where to go next.
type CastVoteResponse struct {
	Vote BallotResponse `json:"vote"`
	// Next is the selection endpoint of the current category, or the menu.
	Next string `json:"next" example:"/api/v1/vote/categories/3/next"`
}

// ClearSkippedResponse reports how many skipped talks were released.
type ClearSkippedResponse struct {
	Reclaimed int64 `json:"reclaimed" example:"4"`
}

// SummaryResponse is a page of the voter's history.
type SummaryResponse struct {
	Votes      []BallotResponse `json:"votes"`
	Pagination Pagination       `json:"pagination"`
}

func ballot(v *domain.Vote) BallotResponse {
	return BallotResponse{
		PublicID: v.PublicID,
		Status:   v.Status(),
		Value:    v.Value,
		Talk: TalkView{
			Title:       v.Talk.AnonymizedTitle,
			Description: v.Talk.AnonymizedDescription,
			Length:      v.Talk.Length,
		},
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

//
// Helpers
//

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, name+" must be a positive integer",
			map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// publicID validates the ballot id path parameter.
func publicID(c *gin.Context) (string, bool) {
	pid := c.Param("public_id")
	if _, err := uuid.Parse(pid); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "public_id must be a UUID")
		return "", false
	}
	return pid, true
}

//
// Handlers
//

// ListCategories godoc
// @ID          listVotingCategories
// @Summary     Voting menu
// @Description Lists the conference's categories with the number of talks the voter has yet to vote on.
// @Tags        Voting
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)"  example(user123)
//
// @Success     200  {object}  handlers.ListCategoriesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /vote/categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	items, err := h.vote.Categories(c.Request.Context(), conference(c), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	// Casers carry state and are not shared between requests.
	caser := cases.Title(language.English)
	out := make([]CategoryResponse, 0, len(items))
	for _, it := range items {
		out = append(out, CategoryResponse{
			ID:          it.ID,
			Name:        it.Name,
			DisplayName: caser.String(it.Name),
			Remaining:   it.Remaining,
		})
	}
	ok(c, http.StatusOK, ListCategoriesResponse{Categories: out})
}

// NextTalk godoc
// @ID          nextTalk
// @Summary     Select the next talk of a category
// @Description Resumes the voter's undecided reservation or reserves one of the least-voted talks.
// @Description When the category is exhausted, skipped talks are released once (outcome skips_reclaimed).
// @Tags        Voting
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)"  example(user123)
// @Param       id         path    int     true  "Category ID"  minimum(1)
//
// @Success     200  {object}  handlers.NextTalkResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Pick again"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /vote/categories/{id}/next [post]
func (h *Handlers) NextTalk(c *gin.Context) {
	categoryID, valid := pathID(c, "id")
	if !valid {
		return
	}

	sel, err := h.vote.SelectCandidate(c.Request.Context(), conference(c), userID(c), categoryID)
	if err != nil {
		failService(c, err)
		return
	}

	resp := NextTalkResponse{
		Outcome:    string(sel.Outcome),
		CategoryID: sel.CategoryID,
		Resumed:    sel.Resumed,
		Reclaimed:  sel.Reclaimed,
	}
	middleware.RecordVotingEvent(c, string(sel.Outcome))
	if sel.Outcome == services.OutcomeSelected && sel.Vote != nil {
		middleware.SetVotingCategory(c, categoryID)
		resp.PublicID = sel.Vote.PublicID
		resp.Location = h.link("/vote/cast/" + sel.Vote.PublicID)
		c.Header("Location", resp.Location)
	} else {
		middleware.ClearVotingCategory(c)
	}
	ok(c, http.StatusOK, resp)
}

// GetBallot godoc
// @ID          getBallot
// @Summary     Show a reserved talk
// @Description Returns the anonymized talk behind one of the voter's votes.
// @Tags        Voting
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)"  example(user123)
// @Param       public_id  path    string  true  "Vote public ID"  format(uuid)
//
// @Success     200  {object}  handlers.BallotResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     404  {object}  handlers.ErrorResponse  "Vote not found"
// @Router      /vote/cast/{public_id} [get]
func (h *Handlers) GetBallot(c *gin.Context) {
	pid, valid := publicID(c)
	if !valid {
		return
	}
	v, err := h.vote.GetVote(c.Request.Context(), conference(c), userID(c), pid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ballot(v))
}

// CastVote godoc
// @ID          castVote
// @Summary     Vote on or skip a talk
// @Description Records the voter's decision. "vote" needs a value of -1, 0 or 1; "skip" defers the talk.
// @Tags        Voting
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)"  example(user123)
// @Param       public_id  path    string  true  "Vote public ID"  format(uuid)
// @Param       body       body    handlers.CastVoteRequest  true  "Decision"
//
// @Success     200  {object}  handlers.CastVoteResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     404  {object}  handlers.ErrorResponse  "Vote not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /vote/cast/{public_id} [post]
func (h *Handlers) CastVote(c *gin.Context) {
	pid, valid := publicID(c)
	if !valid {
		return
	}
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
		return
	}

	v, err := h.vote.CastVote(c.Request.Context(), conference(c), userID(c), pid,
		services.CastInput{Action: req.Action, Value: req.Value})
	if err != nil {
		failService(c, err)
		return
	}

	if v.IsSkipped() {
		middleware.RecordVotingEvent(c, middleware.EventSkip)
	} else {
		middleware.RecordVotingEvent(c, middleware.EventVote)
	}

	next := h.link("/vote/categories")
	if cat, found := middleware.VotingCategory(c); found {
		next = h.link(fmt.Sprintf("/vote/categories/%d/next", cat))
	}
	ok(c, http.StatusOK, CastVoteResponse{Vote: ballot(v), Next: next})
}

// ClearSkipped godoc
// @ID          clearSkipped
// @Summary     Release skipped talks
// @Description Deletes the voter's skipped votes so those talks are offered again. Optionally limited to one category.
// @Tags        Voting
// @Produce     json
//
// @Param       X-User-ID    header  string  false "User ID (development header)"  example(user123)
// @Param       category_id  query   int     false "Only this category"  minimum(1)
//
// @Success     200  {object}  handlers.ClearSkippedResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     404  {object}  handlers.ErrorResponse  "Category not found"
// @Router      /vote/clear-skipped [post]
func (h *Handlers) ClearSkipped(c *gin.Context) {
	var categoryID *uint
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			failFields(c, http.StatusBadRequest, ErrCodeValidation, "category_id must be a positive integer",
				map[string]string{"category_id": "must be a positive integer"})
			return
		}
		cid := uint(id)
		categoryID = &cid
	}

	n, err := h.vote.ReclaimSkipped(c.Request.Context(), conference(c), userID(c), categoryID)
	if err != nil {
		failService(c, err)
		return
	}
	if n > 0 {
		middleware.RecordVotingEvent(c, middleware.EventSkipsCleared)
	}
	ok(c, http.StatusOK, ClearSkippedResponse{Reclaimed: n})
}

// Summary godoc
// @ID          votingSummary
// @Summary     Voting history (paginated)
// @Description Returns the voter's votes oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Voting
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (development header)"  example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"votes:user123:3:1700000000\")
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.SummaryResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Voting closed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /vote/summary [get]
func (h *Handlers) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	conf := conference(c)
	uid := userID(c)
	page, pageSize := clampPagination(c)

	count, maxTS, err := h.vote.SummaryStats(ctx, conf, uid)
	if err != nil {
		failService(c, err)
		return
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"votes:%s:%d:%d:%d:%d"`, uid, count, ts, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	items, total, err := h.vote.Summary(ctx, conf, uid, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	out := make([]BallotResponse, 0, len(items))
	for i := range items {
		out = append(out, ballot(&items[i]))
	}
	ok(c, http.StatusOK, SummaryResponse{
		Votes:      out,
		Pagination: newPagination(page, pageSize, total),
	})
}
