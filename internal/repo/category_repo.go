// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for categories and
// the per-voter progress menu.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// CreateCategory inserts a category named name in conferenceID.
func CreateCategory(ctx context.Context, db *gorm.DB, conferenceID uint, name string) (*domain.Category, error) {
	now := time.Now().UTC()
	c := &domain.Category{ConferenceID: conferenceID, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := db.WithContext(ctx).Omit("Conference").Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetCategory fetches a category by id within conferenceID. Categories of
// other conferences are reported as ErrNotFound.
func GetCategory(ctx context.Context, db *gorm.DB, conferenceID, id uint) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).
		Where("id = ? AND conference_id = ?", id, conferenceID).
		Take(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoryProgress is one entry of the voting menu.
type CategoryProgress struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Remaining int64  `json:"remaining"`
}

// progressSQL counts, per category, the anonymized proposed talks the voter
// has not yet given a value to. Reserved and skipped talks still count.
const progressSQL = `
SELECT c.id, c.name,
       (SELECT COUNT(*) FROM talks t
          JOIN talk_categories tc ON tc.talk_id = t.id
         WHERE tc.category_id = c.id
           AND t.state = ?
           AND t.is_anonymized = ?
           AND NOT EXISTS (SELECT 1 FROM votes v
                            WHERE v.talk_id = t.id AND v.user_id = ? AND v.value IS NOT NULL)) AS remaining
  FROM categories c
 WHERE c.conference_id = ?
 ORDER BY c.name ASC, c.id ASC`

// ListCategoryProgress returns the conference's categories ordered by name,
// each with the number of talks still awaiting userID's vote.
func ListCategoryProgress(ctx context.Context, db *gorm.DB, conferenceID uint, userID string) ([]CategoryProgress, error) {
	var out []CategoryProgress
	err := db.WithContext(ctx).
		Raw(progressSQL, domain.TalkProposed, true, userID, conferenceID).
		Scan(&out).Error
	return out, err
}
