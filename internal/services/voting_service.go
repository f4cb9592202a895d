// Package services – VotingService
//
// This file implements VotingService, the allocation and fairness engine of
// the CFP. It hands each voter the next talk of a category, preferring the
// least-voted talks, records votes and skips, and gives skipped talks back
// once a category runs dry.
//
// Concurrency: there is no in-process locking. Every selection attempt runs
// in its own transaction and relies on the (talk_id, user_id) primary key of
// votes; a lost reservation race surfaces as repo.ErrDuplicate and the
// attempt is retried up to MaxAttempts times.
//
// Observability: all public methods are OpenTelemetry-instrumented and
// outcomes are counted in Prometheus (see metrics.go).
package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/repo"
	"github.com/tbourn/go-cfp-voting/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the result kind of a selection.
type Outcome string

const (
	// OutcomeSelected means a talk is reserved (or resumed) for the voter.
	OutcomeSelected Outcome = "selected"
	// OutcomeExhausted means the voter has decided every talk of the category.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeSkipsReclaimed means the pool was empty and the voter's skipped
	// talks were released; the next selection will offer them again.
	OutcomeSkipsReclaimed Outcome = "skips_reclaimed"
)

// Selection is what SelectCandidate hands back.
type Selection struct {
	Outcome    Outcome
	CategoryID uint
	// Vote is set when Outcome is OutcomeSelected.
	Vote *domain.Vote
	// Resumed is true when Vote is an earlier, still undecided reservation.
	Resumed bool
	// Reclaimed is the number of skips released for OutcomeSkipsReclaimed.
	Reclaimed int64
}

// CastInput is a voter's decision on a reserved talk.
type CastInput struct {
	Action string // "vote" or "skip"
	Value  *int   // required for "vote"
}

// VoteRepo defines the repository contract required by VotingService.
type VoteRepo interface {
	// GetCategory fetches a category of the conference.
	GetCategory(ctx context.Context, db *gorm.DB, conferenceID, id uint) (*domain.Category, error)

	// ListCategoryProgress returns the conference's categories with remaining counts.
	ListCategoryProgress(ctx context.Context, db *gorm.DB, conferenceID uint, userID string) ([]repo.CategoryProgress, error)

	// FindPendingVote returns the voter's unresolved reservation in a category.
	FindPendingVote(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (*domain.Vote, error)

	// EligibleTalks returns the candidate pool, least voted first.
	EligibleTalks(ctx context.Context, db *gorm.DB, userID string, categoryID uint) ([]repo.Candidate, error)

	// HasSkippedVotes reports whether the voter skipped talks in a category.
	HasSkippedVotes(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (bool, error)

	// ClearSkipped deletes skipped votes, optionally within one category.
	ClearSkipped(ctx context.Context, db *gorm.DB, userID string, categoryID *uint) (int64, error)

	// CreateVote inserts a reservation, or returns repo.ErrDuplicate.
	CreateVote(ctx context.Context, db *gorm.DB, userID string, talkID uint) (*domain.Vote, error)

	// GetVoteByPublicID loads a vote owned by the voter.
	GetVoteByPublicID(ctx context.Context, db *gorm.DB, publicID, userID string) (*domain.Vote, error)

	// UpdateVoteDecision persists value and skipped of a vote.
	UpdateVoteDecision(ctx context.Context, db *gorm.DB, v *domain.Vote) error

	// CountVotes returns the voter's total votes for pagination.
	CountVotes(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListVotesPage returns a page of the voter's votes.
	ListVotesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Vote, error)

	// VotesStats returns count and latest update of the voter's votes.
	VotesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// VotingService selects candidates and records decisions for voters.
type VotingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the vote repository used by this service.
	Repo VoteRepo
	// Gate checks the voting window before every operation.
	Gate *Gate

	// MaxAttempts bounds selection retries after reservation conflicts.
	MaxAttempts int
	// Rand returns a uniform int in [0, n). Defaults to rand.IntN.
	Rand func(n int) int
}

// NewVotingService constructs a VotingService with default retry and random source.
func NewVotingService(db *gorm.DB, r VoteRepo, gate *Gate) *VotingService {
	return &VotingService{
		DB:          db,
		Repo:        r,
		Gate:        gate,
		MaxAttempts: 3,
		Rand:        rand.IntN,
	}
}

// SelectCandidate returns the talk the voter should look at next in
// categoryID. An undecided reservation is resumed first. Otherwise a talk is
// drawn uniformly from the least-voted tier of the eligible pool and
// reserved. An empty pool releases the voter's skips in the category
// (OutcomeSkipsReclaimed) or, with none left, reports OutcomeExhausted.
func (s *VotingService) SelectCandidate(ctx context.Context, conf *domain.Conference, userID string, categoryID uint) (*Selection, error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "SelectCandidate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("category.id", int64(categoryID)),
		),
	)
	defer span.End()

	if err := s.Gate.Check(conf); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, conf, categoryID); err != nil {
		return nil, err
	}

	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sel, err := s.selectOnce(ctx, userID, categoryID)
		if errors.Is(err, repo.ErrDuplicate) {
			selectionConflicts.Inc()
			logFrom(ctx).Debug().
				Str("user_id", userID).
				Uint("category_id", categoryID).
				Int("attempt", attempt).
				Msg("reservation conflict, retrying selection")
			continue
		}
		if err != nil {
			traceErr(span, err)
			return nil, err
		}
		voteSelections.WithLabelValues(string(sel.Outcome)).Inc()
		span.SetAttributes(
			attribute.String("selection.outcome", string(sel.Outcome)),
			attribute.Int("selection.attempts", attempt),
		)
		if sel.Outcome == OutcomeSkipsReclaimed {
			skipsReclaimed.Add(float64(sel.Reclaimed))
			logFrom(ctx).Info().
				Str("user_id", userID).
				Uint("category_id", categoryID).
				Int64("reclaimed", sel.Reclaimed).
				Msg("category exhausted, skipped talks released")
		}
		return sel, nil
	}

	logFrom(ctx).Warn().
		Str("user_id", userID).
		Uint("category_id", categoryID).
		Int("attempts", attempts).
		Msg("selection gave up after repeated conflicts")
	return nil, ErrSelectionConflict
}

// selectOnce runs one selection attempt in its own transaction so that a
// failed insert never poisons the next attempt.
func (s *VotingService) selectOnce(ctx context.Context, userID string, categoryID uint) (*Selection, error) {
	var out *Selection
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := s.Repo.FindPendingVote(ctx, tx, userID, categoryID)
		switch {
		case err == nil:
			out = &Selection{Outcome: OutcomeSelected, CategoryID: categoryID, Vote: pending, Resumed: true}
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		pool, err := s.Repo.EligibleTalks(ctx, tx, userID, categoryID)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			skipped, err := s.Repo.HasSkippedVotes(ctx, tx, userID, categoryID)
			if err != nil {
				return err
			}
			if !skipped {
				out = &Selection{Outcome: OutcomeExhausted, CategoryID: categoryID}
				return nil
			}
			n, err := s.Repo.ClearSkipped(ctx, tx, userID, &categoryID)
			if err != nil {
				return err
			}
			out = &Selection{Outcome: OutcomeSkipsReclaimed, CategoryID: categoryID, Reclaimed: n}
			return nil
		}

		talkID := s.pick(pool)
		v, err := s.Repo.CreateVote(ctx, tx, userID, talkID)
		if err != nil {
			return err
		}
		out = &Selection{Outcome: OutcomeSelected, CategoryID: categoryID, Vote: v}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// pick draws uniformly among the candidates sharing the lowest vote count.
// pool must be non-empty and sorted by VoteCount ascending.
func (s *VotingService) pick(pool []repo.Candidate) uint {
	low := pool[0].VoteCount
	tier := 1
	for tier < len(pool) && pool[tier].VoteCount == low {
		tier++
	}
	rnd := s.Rand
	if rnd == nil {
		rnd = rand.IntN
	}
	return pool[rnd(tier)].TalkID
}

// GetVote returns the voter's vote with its talk, for display before casting.
func (s *VotingService) GetVote(ctx context.Context, conf *domain.Conference, userID, publicID string) (*domain.Vote, error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "GetVote",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("vote.public_id", publicID),
		),
	)
	defer span.End()

	if err := s.Gate.Check(conf); err != nil {
		return nil, err
	}
	v, err := s.Repo.GetVoteByPublicID(ctx, s.DB, publicID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrVoteNotFound
	}
	return v, err
}

// CastVote records the voter's decision on the vote identified by publicID.
// "vote" stores the value and marks the vote decided; "skip" clears any value
// and marks it skipped. Input is validated before the database is touched.
func (s *VotingService) CastVote(ctx context.Context, conf *domain.Conference, userID, publicID string, in CastInput) (out *domain.Vote, err error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "CastVote",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("vote.public_id", publicID),
			attribute.String("vote.action", in.Action),
		),
	)
	defer span.End()
	defer func() { traceErr(span, err) }()

	var (
		value   *int
		skipped bool
	)
	switch in.Action {
	case domain.ActionVote:
		if in.Value == nil {
			return nil, ErrMissingVoteValue
		}
		if !domain.ValidVoteValue(*in.Value) {
			return nil, ErrInvalidVoteValue
		}
		v := *in.Value
		value = &v
	case domain.ActionSkip:
		skipped = true
	default:
		return nil, ErrInvalidAction
	}

	if err := s.Gate.Check(conf); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := s.Repo.GetVoteByPublicID(ctx, tx, publicID, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVoteNotFound
		}
		if err != nil {
			return err
		}
		v.Value = value
		v.Skipped = &skipped
		if err := s.Repo.UpdateVoteDecision(ctx, tx, v); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrVoteNotFound
			}
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	votesCast.WithLabelValues(in.Action).Inc()
	return out, nil
}

// ReclaimSkipped deletes the voter's skipped votes so those talks become
// eligible again. A non-nil categoryID restricts the release to that category
// of the conference. It returns the number of votes removed.
func (s *VotingService) ReclaimSkipped(ctx context.Context, conf *domain.Conference, userID string, categoryID *uint) (int64, error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "ReclaimSkipped",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if err := s.Gate.Check(conf); err != nil {
		return 0, err
	}
	if categoryID != nil {
		span.SetAttributes(attribute.Int64("category.id", int64(*categoryID)))
		if err := s.ensureCategory(ctx, conf, *categoryID); err != nil {
			return 0, err
		}
	}

	var n int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = s.Repo.ClearSkipped(ctx, tx, userID, categoryID)
		return err
	})
	if err != nil {
		return 0, err
	}
	skipsReclaimed.Add(float64(n))
	return n, nil
}

// Summary returns a page of the voter's votes with their talks, oldest first,
// and the total number of votes.
func (s *VotingService) Summary(ctx context.Context, conf *domain.Conference, userID string, page, pageSize int) ([]domain.Vote, int64, error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := s.Gate.Check(conf); err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.NormalizePage(page, pageSize)
	offset := utils.Offset(page, pageSize)

	total, err := s.Repo.CountVotes(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Vote{}, 0, nil
	}
	items, err := s.Repo.ListVotesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// SummaryStats returns the count and latest update of the voter's votes, for
// conditional responses. It is gated like Summary so a cached summary is
// never confirmed while voting is closed.
func (s *VotingService) SummaryStats(ctx context.Context, conf *domain.Conference, userID string) (int64, *time.Time, error) {
	if err := s.Gate.Check(conf); err != nil {
		return 0, nil, err
	}
	return s.Repo.VotesStats(ctx, s.DB, userID)
}

// Categories returns the conference's categories ordered by name with the
// number of talks the voter has yet to vote on in each.
func (s *VotingService) Categories(ctx context.Context, conf *domain.Conference, userID string) ([]repo.CategoryProgress, error) {
	tr := otel.Tracer("services/VotingService")
	ctx, span := tr.Start(ctx, "Categories",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if err := s.Gate.Check(conf); err != nil {
		return nil, err
	}
	return s.Repo.ListCategoryProgress(ctx, s.DB, conf.ID, userID)
}

// Phase reports which conference windows are open right now.
func (s *VotingService) Phase(conf *domain.Conference) Phase {
	return s.Gate.Phase(conf)
}

func (s *VotingService) ensureCategory(ctx context.Context, conf *domain.Conference, categoryID uint) error {
	_, err := s.Repo.GetCategory(ctx, s.DB, conf.ID, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

// logFrom returns the request logger stored in ctx, or the global logger.
func logFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
