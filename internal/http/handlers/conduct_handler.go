// Code-of-conduct report HTTP handler.
//
// POST /talks/{id}/conduct-reports files a report about a talk. The endpoint
// honors Idempotency-Key: a replayed key returns the report created by the
// first request instead of filing (and mailing) a second one.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/repo"
)

// HeaderIdempotencyReplayed marks responses served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// ConductReportRequest is the JSON payload for filing a report.
type ConductReportRequest struct {
	// Text describes the concern; it is NFC-normalized and trimmed.
	Text string `json:"text" example:"The abstract contains a slur."`
	// Anonymous omits the reporter's identity from the stored report.
	Anonymous bool `json:"anonymous" example:"false"`
}

// ConductReportResponse is the stored report as seen by its reporter.
type ConductReportResponse struct {
	ID        uint      `json:"id" example:"7"`
	TalkID    uint      `json:"talk_id" example:"42"`
	Status    string    `json:"status" example:"reported"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"created_at"`
}

func conductReport(r *domain.ConductReport) ConductReportResponse {
	return ConductReportResponse{
		ID:        r.ID,
		TalkID:    r.TalkID,
		Status:    r.Status,
		Anonymous: r.UserID == nil,
		CreatedAt: r.CreatedAt,
	}
}

// ReportConduct godoc
// @ID          reportConduct
// @Summary     Report a code-of-conduct concern about a talk
// @Description Stores the report and notifies the conference's conduct contact.
// @Description Send an Idempotency-Key to make retries safe; replays return the original report.
// @Tags        Conduct
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (development header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Deduplicates retries"  example(7f1c0d1e-report-1)
// @Param       id               path    int     true  "Talk ID"  minimum(1)
// @Param       body             body    handlers.ConductReportRequest  true  "Report"
//
// @Success     201  {object}  handlers.ConductReportResponse
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Talk not found"
// @Failure     503  {object}  handlers.ErrorResponse  "No conduct contact configured"
// @Router      /talks/{id}/conduct-reports [post]
func (h *Handlers) ReportConduct(c *gin.Context) {
	talkID, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	scope := middleware.GetIdempotencyScope(c)

	if rep, found := middleware.ReplayOf(c); found && h.replayConduct(c, rep) {
		return
	}

	var req ConductReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
		return
	}

	rep, err := h.conduct.Report(ctx, conference(c), uid, talkID, req.Text, req.Anonymous)
	if err != nil {
		failService(c, err)
		return
	}

	if hasKey && h.idem != nil {
		resID := strconv.FormatUint(uint64(rep.ID), 10)
		if err := h.idem.Save(ctx, uid, scope, key, resID, http.StatusCreated); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency save failed")
		}
	}
	middleware.RecordVotingEvent(c, middleware.EventConductReport)
	ok(c, http.StatusCreated, conductReport(rep))
}

// replayConduct answers with the report a previous request created. It
// returns false when that report is gone, letting the request run again.
func (h *Handlers) replayConduct(c *gin.Context, rep middleware.Replay) bool {
	id, err := strconv.ParseUint(rep.ResourceID, 10, 32)
	if err != nil {
		return false
	}
	report, err := h.conduct.Get(c.Request.Context(), uint(id))
	if err != nil {
		return false
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	ok(c, rep.Status, conductReport(report))
	return true
}
