// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model
// and the candidate queries the selector is built on.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: filter predicates live here, decisions live in services.
//
// Error semantics:
//   - Missing votes are reported as ErrNotFound.
//   - A second vote for the same (talk_id, user_id) returns ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// Candidate is a talk eligible for a voter, with its current exposure.
type Candidate struct {
	TalkID    uint
	VoteCount int64
}

// eligibleSQL selects anonymized, proposed talks of a category that the voter
// has never been shown, with their live non-skipped vote count.
const eligibleSQL = `
SELECT t.id AS talk_id,
       (SELECT COUNT(*) FROM votes v
         WHERE v.talk_id = t.id AND (v.skipped IS NULL OR v.skipped = ?)) AS vote_count
  FROM talks t
  JOIN talk_categories tc ON tc.talk_id = t.id
 WHERE tc.category_id = ?
   AND t.is_anonymized = ?
   AND t.state = ?
   AND NOT EXISTS (SELECT 1 FROM votes mine WHERE mine.talk_id = t.id AND mine.user_id = ?)
 ORDER BY vote_count ASC, t.id ASC`

// EligibleTalks returns the candidate pool for userID in categoryID, least
// voted first. Ties keep a stable id order; callers randomize within a tier.
func EligibleTalks(ctx context.Context, db *gorm.DB, userID string, categoryID uint) ([]Candidate, error) {
	var out []Candidate
	err := db.WithContext(ctx).
		Raw(eligibleSQL, false, categoryID, true, domain.TalkProposed, userID).
		Scan(&out).Error
	return out, err
}

// FindPendingVote returns the voter's oldest unresolved reservation for a
// still-proposed talk in categoryID, or ErrNotFound.
func FindPendingVote(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Joins("JOIN talks ON talks.id = votes.talk_id").
		Joins("JOIN talk_categories ON talk_categories.talk_id = votes.talk_id").
		Where("talk_categories.category_id = ?", categoryID).
		Where("votes.user_id = ? AND votes.value IS NULL AND votes.skipped IS NULL", userID).
		Where("talks.state = ?", domain.TalkProposed).
		Order("votes.created_at ASC").
		Take(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HasSkippedVotes reports whether userID skipped any talk in categoryID.
func HasSkippedVotes(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Joins("JOIN talk_categories ON talk_categories.talk_id = votes.talk_id").
		Where("talk_categories.category_id = ?", categoryID).
		Where("votes.user_id = ? AND votes.skipped = ?", userID, true).
		Count(&n).Error
	return n > 0, err
}

// CreateVote reserves talkID for userID: value and skipped stay NULL and a
// fresh public id is assigned. A reservation that already exists for the pair
// yields ErrDuplicate.
func CreateVote(ctx context.Context, db *gorm.DB, userID string, talkID uint) (*domain.Vote, error) {
	now := time.Now().UTC()
	v := &domain.Vote{
		TalkID:    talkID,
		UserID:    userID,
		PublicID:  uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit("Talk").Create(v).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return v, nil
}

// GetVoteByPublicID loads a vote owned by userID with its talk. Votes of other
// users are reported as ErrNotFound.
func GetVoteByPublicID(ctx context.Context, db *gorm.DB, publicID, userID string) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Preload("Talk").
		Where("public_id = ? AND user_id = ?", publicID, userID).
		Take(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVoteDecision persists v.Value and v.Skipped (NULLs included) for the
// vote's (talk_id, user_id) key. It returns ErrNotFound when no row matched.
func UpdateVoteDecision(ctx context.Context, db *gorm.DB, v *domain.Vote) error {
	res := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("talk_id = ? AND user_id = ?", v.TalkID, v.UserID).
		Updates(map[string]any{
			"value":      v.Value,
			"skipped":    v.Skipped,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearSkipped deletes userID's skipped votes and returns how many were
// removed. When categoryID is non-nil only talks in that category are
// affected; a talk in several categories matches if any of them is the filter.
func ClearSkipped(ctx context.Context, db *gorm.DB, userID string, categoryID *uint) (int64, error) {
	q := db.WithContext(ctx).Where("user_id = ? AND skipped = ?", userID, true)
	if categoryID != nil {
		q = q.Where("talk_id IN (SELECT talk_id FROM talk_categories WHERE category_id = ?)", *categoryID)
	}
	res := q.Delete(&domain.Vote{})
	return res.RowsAffected, res.Error
}

// CountVotes returns the number of votes held by userID in any state.
func CountVotes(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListVotesPage returns userID's votes with their talks, oldest first.
func ListVotesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Vote, error) {
	var out []domain.Vote
	err := db.WithContext(ctx).
		Preload("Talk").
		Where("user_id = ?", userID).
		Order("created_at ASC, talk_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
