// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the read-only aggregates: the voter digest
// behind summary ETags and the organizer scoreboard.
//
// Vote count and score are never stored on the talk; they are recomputed from
// the votes table on every call.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// VotesStats returns how many votes userID holds in any state and the most
// recent updated_at among them (nil without votes). Together they change
// whenever a reservation, decision or skip-clear touches the voter's rows.
func VotesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	mine := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Vote{}).Where("user_id = ?", userID)
	}

	var count int64
	if err := mine().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Ordered pluck instead of MAX(): SQLite hands MAX back as TEXT.
	var latest []time.Time
	if err := mine().Order("updated_at DESC").Limit(1).Pluck("updated_at", &latest).Error; err != nil {
		return 0, nil, err
	}
	if len(latest) == 0 {
		return count, nil, nil
	}
	last := latest[0].UTC()
	return count, &last, nil
}

// TalkStats is the per-talk vote aggregate shown to organizers.
type TalkStats struct {
	TalkID    uint   `json:"talk_id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	VoteCount int64  `json:"vote_count"`
	VoteScore int64  `json:"vote_score"`
}

// talkStatsSQL computes vote_count (non-skipped rows, reservations included)
// and vote_score (sum of decided values, zero without votes) per talk.
const talkStatsSQL = `
SELECT t.id AS talk_id, t.title, t.state,
       (SELECT COUNT(*) FROM votes v
         WHERE v.talk_id = t.id AND (v.skipped IS NULL OR v.skipped = ?)) AS vote_count,
       (SELECT COALESCE(SUM(v.value), 0) FROM votes v WHERE v.talk_id = t.id) AS vote_score
  FROM talks t`

// TalkVoteStats returns aggregates for the given talks in id order. Unknown
// ids are absent from the result.
func TalkVoteStats(ctx context.Context, db *gorm.DB, talkIDs ...uint) ([]TalkStats, error) {
	if len(talkIDs) == 0 {
		return nil, nil
	}
	var out []TalkStats
	err := db.WithContext(ctx).
		Raw(talkStatsSQL+" WHERE t.id IN ? ORDER BY t.id ASC", false, talkIDs).
		Scan(&out).Error
	return out, err
}

// ListTalkStats returns aggregates for every talk filed in a category of
// conferenceID, best scored first.
func ListTalkStats(ctx context.Context, db *gorm.DB, conferenceID uint) ([]TalkStats, error) {
	var out []TalkStats
	q := strings.Join([]string{
		talkStatsSQL,
		` WHERE EXISTS (SELECT 1 FROM talk_categories tc
                  JOIN categories c ON c.id = tc.category_id
                 WHERE tc.talk_id = t.id AND c.conference_id = ?)`,
		` ORDER BY vote_score DESC, vote_count DESC, t.id ASC`,
	}, "")
	err := db.WithContext(ctx).Raw(q, false, conferenceID).Scan(&out).Error
	return out, err
}
