package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/repo"
	"github.com/tbourn/go-cfp-voting/internal/services"
)

// ---------- stubs ----------

// stubVoting lets each test override only the calls it exercises.
type stubVoting struct {
	selectFn  func(ctx context.Context, conf *domain.Conference, userID string, categoryID uint) (*services.Selection, error)
	getFn     func(ctx context.Context, conf *domain.Conference, userID, publicID string) (*domain.Vote, error)
	castFn    func(ctx context.Context, conf *domain.Conference, userID, publicID string, in services.CastInput) (*domain.Vote, error)
	reclaimFn func(ctx context.Context, conf *domain.Conference, userID string, categoryID *uint) (int64, error)
	summaryFn func(ctx context.Context, conf *domain.Conference, userID string, page, pageSize int) ([]domain.Vote, int64, error)
	statsFn   func(ctx context.Context, conf *domain.Conference, userID string) (int64, *time.Time, error)
	catsFn    func(ctx context.Context, conf *domain.Conference, userID string) ([]repo.CategoryProgress, error)
	phase     services.Phase
}

var errUnexpected = errors.New("unexpected call")

func (s *stubVoting) SelectCandidate(ctx context.Context, conf *domain.Conference, userID string, categoryID uint) (*services.Selection, error) {
	if s.selectFn == nil {
		return nil, errUnexpected
	}
	return s.selectFn(ctx, conf, userID, categoryID)
}

func (s *stubVoting) GetVote(ctx context.Context, conf *domain.Conference, userID, publicID string) (*domain.Vote, error) {
	if s.getFn == nil {
		return nil, errUnexpected
	}
	return s.getFn(ctx, conf, userID, publicID)
}

func (s *stubVoting) CastVote(ctx context.Context, conf *domain.Conference, userID, publicID string, in services.CastInput) (*domain.Vote, error) {
	if s.castFn == nil {
		return nil, errUnexpected
	}
	return s.castFn(ctx, conf, userID, publicID, in)
}

func (s *stubVoting) ReclaimSkipped(ctx context.Context, conf *domain.Conference, userID string, categoryID *uint) (int64, error) {
	if s.reclaimFn == nil {
		return 0, errUnexpected
	}
	return s.reclaimFn(ctx, conf, userID, categoryID)
}

func (s *stubVoting) Summary(ctx context.Context, conf *domain.Conference, userID string, page, pageSize int) ([]domain.Vote, int64, error) {
	if s.summaryFn == nil {
		return nil, 0, errUnexpected
	}
	return s.summaryFn(ctx, conf, userID, page, pageSize)
}

func (s *stubVoting) SummaryStats(ctx context.Context, conf *domain.Conference, userID string) (int64, *time.Time, error) {
	if s.statsFn == nil {
		return 0, nil, errUnexpected
	}
	return s.statsFn(ctx, conf, userID)
}

func (s *stubVoting) Categories(ctx context.Context, conf *domain.Conference, userID string) ([]repo.CategoryProgress, error) {
	if s.catsFn == nil {
		return nil, errUnexpected
	}
	return s.catsFn(ctx, conf, userID)
}

func (s *stubVoting) Phase(*domain.Conference) services.Phase { return s.phase }

type stubStats struct {
	rows []repo.TalkStats
	err  error
}

func (s stubStats) TalkStats(context.Context, *domain.Conference) ([]repo.TalkStats, error) {
	return s.rows, s.err
}

func (s stubStats) Talk(_ context.Context, id uint) (*repo.TalkStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.rows {
		if s.rows[i].TalkID == id {
			return &s.rows[i], nil
		}
	}
	return nil, services.ErrTalkNotFound
}

type stubConduct struct {
	reports int
	lastReq struct {
		userID    string
		talkID    uint
		text      string
		anonymous bool
	}
	err    error
	stored map[uint]*domain.ConductReport
}

func (s *stubConduct) Report(_ context.Context, _ *domain.Conference, userID string, talkID uint, text string, anonymous bool) (*domain.ConductReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reports++
	s.lastReq.userID, s.lastReq.talkID, s.lastReq.text, s.lastReq.anonymous = userID, talkID, text, anonymous
	rep := &domain.ConductReport{ID: uint(s.reports), TalkID: talkID, Text: text, Status: domain.ReportReported}
	if !anonymous {
		rep.UserID = &userID
	}
	if s.stored == nil {
		s.stored = map[uint]*domain.ConductReport{}
	}
	s.stored[rep.ID] = rep
	return rep, nil
}

func (s *stubConduct) Get(_ context.Context, id uint) (*domain.ConductReport, error) {
	if rep, found := s.stored[id]; found {
		return rep, nil
	}
	return nil, services.ErrReportNotFound
}

// memIdem is an in-memory IdempotencyStore.
type memIdem struct {
	recs map[string]*domain.Idempotency
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]*domain.Idempotency{}} }

func (m *memIdem) replay(_ context.Context, userID, scope, key string, _ time.Time) (*middleware.Replay, error) {
	if rec, found := m.recs[userID+"|"+scope+"|"+key]; found {
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}
	return nil, nil
}

func (m *memIdem) Save(_ context.Context, userID, scope, key, resourceID string, status int) error {
	k := userID + "|" + scope + "|" + key
	if _, found := m.recs[k]; found {
		return repo.ErrDuplicate
	}
	m.recs[k] = &domain.Idempotency{UserID: userID, Scope: scope, Key: key, ResourceID: resourceID, Status: status}
	return nil
}

// ---------- router + request helpers ----------

var testConf = &domain.Conference{ID: 1, Name: "GopherCon", ConductEmail: "conduct@example.com"}

// newTestRouter mounts the handlers the way the real router does, with
// header identities and a fixed conference.
func newTestRouter(h *Handlers, idem *memIdem) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(middleware.AuthOptions{}))
	r.Use(middleware.ConferenceContext(func(context.Context) (*domain.Conference, error) { return testConf, nil }))
	var lookup middleware.IdempotencyLookup
	if idem != nil {
		lookup = idem.replay
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))

	h.BasePath = "/api/v1"
	vote := r.Group("/vote", middleware.RequireUser())
	vote.GET("/categories", h.ListCategories)
	vote.POST("/categories/:id/next", h.NextTalk)
	vote.GET("/cast/:public_id", h.GetBallot)
	vote.POST("/cast/:public_id", h.CastVote)
	vote.POST("/clear-skipped", h.ClearSkipped)
	vote.GET("/summary", h.Summary)
	r.GET("/conference", h.ConferenceStatus)
	r.POST("/talks/:id/conduct-reports", middleware.RequireUser(), h.ReportConduct)
	r.GET("/admin/talks/stats", middleware.RequireOrganizer(), h.TalkStats)
	r.GET("/admin/talks/:id/stats", middleware.RequireOrganizer(), h.TalkStat)
	return r
}

type reqOpt func(*http.Request)

func asUser(id string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-User-ID", id) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func withCookie(name, value string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func do(t *testing.T, r http.Handler, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v; body=%s", err, w.Body.String())
	}
	return out
}

func intPtr(v int) *int { return &v }

func boolPtr(b bool) *bool { return &b }
