// Package services – StatsService
//
// StatsService exposes the organizer view of vote aggregates. Counts and
// scores are recomputed by the database on every call.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StatsRepo defines the repository contract required by StatsService.
type StatsRepo interface {
	ListTalkStats(ctx context.Context, db *gorm.DB, conferenceID uint) ([]repo.TalkStats, error)
	TalkVoteStats(ctx context.Context, db *gorm.DB, talkIDs ...uint) ([]repo.TalkStats, error)
}

// StatsService reports per-talk vote_count and vote_score.
type StatsService struct {
	DB   *gorm.DB
	Repo StatsRepo
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB, r StatsRepo) *StatsService {
	return &StatsService{DB: db, Repo: r}
}

// TalkStats returns the talks of conf's categories, best scored first.
func (s *StatsService) TalkStats(ctx context.Context, conf *domain.Conference) ([]repo.TalkStats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "TalkStats",
		trace.WithAttributes(attribute.Int64("conference.id", int64(conf.ID))),
	)
	defer span.End()

	items, err := s.Repo.ListTalkStats(ctx, s.DB, conf.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repo.TalkStats{}
	}
	return items, nil
}

// Talk returns the aggregates of a single talk, or ErrTalkNotFound.
func (s *StatsService) Talk(ctx context.Context, talkID uint) (*repo.TalkStats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Talk",
		trace.WithAttributes(attribute.Int64("talk.id", int64(talkID))),
	)
	defer span.End()

	rows, err := s.Repo.TalkVoteStats(ctx, s.DB, talkID)
	if err != nil {
		traceErr(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrTalkNotFound
	}
	return &rows[0], nil
}
