// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for talks and their
// category membership.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// CreateTalk inserts t and links it to the given categories. Talk submission
// lives outside the voting engine; this is used by seeding and tests.
func CreateTalk(ctx context.Context, db *gorm.DB, t *domain.Talk, categoryIDs ...uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.State == "" {
			t.State = domain.TalkProposed
		}
		if t.CreatedAt.IsZero() {
			now := time.Now().UTC()
			t.CreatedAt, t.UpdatedAt = now, now
		}
		if err := tx.Omit("Categories").Create(t).Error; err != nil {
			return err
		}
		for _, cid := range categoryIDs {
			if err := tx.Create(&domain.TalkCategory{TalkID: t.ID, CategoryID: cid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTalk fetches a talk by id, or ErrNotFound.
func GetTalk(ctx context.Context, db *gorm.DB, id uint) (*domain.Talk, error) {
	var t domain.Talk
	if err := db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
