// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for code-of-conduct
// reports.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// CreateConductReport inserts a report about talkID. userID is nil for
// anonymous reports.
func CreateConductReport(ctx context.Context, db *gorm.DB, talkID uint, userID *string, text string) (*domain.ConductReport, error) {
	now := time.Now().UTC()
	r := &domain.ConductReport{
		TalkID:    talkID,
		UserID:    userID,
		Text:      text,
		Status:    domain.ReportReported,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit("Talk").Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetConductReport fetches a report by id, or ErrNotFound.
func GetConductReport(ctx context.Context, db *gorm.DB, id uint) (*domain.ConductReport, error) {
	var r domain.ConductReport
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
