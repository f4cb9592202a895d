// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Conference
// aggregate.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// ConferenceSettings carries the configured values applied by
// EnsureConference. Nil window bounds leave the window unscheduled.
type ConferenceSettings struct {
	Name           string
	ConductEmail   string
	ProposalsBegin *time.Time
	ProposalsEnd   *time.Time
	VotingBegin    *time.Time
	VotingEnd      *time.Time
}

// GetConference fetches a conference by id, or ErrNotFound.
func GetConference(ctx context.Context, db *gorm.DB, id uint) (*domain.Conference, error) {
	var c domain.Conference
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureConference loads the conference named s.Name, creating it if missing,
// and overwrites its windows and conduct contact with s. Window validation
// errors from the domain are returned unchanged.
func EnsureConference(ctx context.Context, db *gorm.DB, s ConferenceSettings) (*domain.Conference, error) {
	var out *domain.Conference
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c domain.Conference
		err := tx.Where("name = ?", s.Name).Take(&c).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c = domain.Conference{Name: s.Name}
		case err != nil:
			return err
		}
		c.ConductEmail = s.ConductEmail
		if err := c.SetProposalWindow(s.ProposalsBegin, s.ProposalsEnd); err != nil {
			return err
		}
		if err := c.SetVotingWindow(s.VotingBegin, s.VotingEnd); err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		out = &c
		return nil
	})
	return out, err
}
