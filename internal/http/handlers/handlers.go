// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service contracts the handlers depend on and the
// Handlers container wired by the router.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/repo"
	"github.com/tbourn/go-cfp-voting/internal/services"
	"github.com/tbourn/go-cfp-voting/internal/utils"
)

//
// Service contracts (context-aware)
//

// VotingService selects talks for voters and records their decisions.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type VotingService interface {
	SelectCandidate(ctx context.Context, conf *domain.Conference, userID string, categoryID uint) (*services.Selection, error)
	GetVote(ctx context.Context, conf *domain.Conference, userID, publicID string) (*domain.Vote, error)
	CastVote(ctx context.Context, conf *domain.Conference, userID, publicID string, in services.CastInput) (*domain.Vote, error)
	ReclaimSkipped(ctx context.Context, conf *domain.Conference, userID string, categoryID *uint) (int64, error)
	Summary(ctx context.Context, conf *domain.Conference, userID string, page, pageSize int) ([]domain.Vote, int64, error)
	SummaryStats(ctx context.Context, conf *domain.Conference, userID string) (int64, *time.Time, error)
	Categories(ctx context.Context, conf *domain.Conference, userID string) ([]repo.CategoryProgress, error)
	Phase(conf *domain.Conference) services.Phase
}

// StatsService reports per-talk vote aggregates to organizers.
type StatsService interface {
	TalkStats(ctx context.Context, conf *domain.Conference) ([]repo.TalkStats, error)
	Talk(ctx context.Context, talkID uint) (*repo.TalkStats, error)
}

// ConductService files code-of-conduct reports.
type ConductService interface {
	Report(ctx context.Context, conf *domain.Conference, userID string, talkID uint, text string, anonymous bool) (*domain.ConductReport, error)
	Get(ctx context.Context, id uint) (*domain.ConductReport, error)
}

// IdempotencyStore remembers which resource a keyed request created. A
// second Save for the same (userID, scope, key) returns repo.ErrDuplicate.
// Replays are found by IdempotencyValidator before the handler runs.
type IdempotencyStore interface {
	Save(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the voting API.
type Handlers struct {
	vote    VotingService
	stats   StatsService
	conduct ConductService
	idem    IdempotencyStore

	// BasePath prefixes links returned to clients, e.g. "/api/v1".
	BasePath string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(vote VotingService, stats StatsService, conduct ConductService, idem IdempotencyStore) *Handlers {
	return &Handlers{vote: vote, stats: stats, conduct: conduct, idem: idem}
}

// link joins BasePath and path.
func (h *Handlers) link(path string) string {
	return strings.TrimRight(h.BasePath, "/") + path
}

// userID returns the identity set by the auth middleware.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// conference returns the conference loaded by the conference middleware.
func conference(c *gin.Context) *domain.Conference { return middleware.Conference(c) }

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size query params, returning
// (page, pageSize) within the list bounds.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}
