// Package domain defines the persistence models for the CFP voting engine.
// This file holds the Conference aggregate and its time-window rules.
package domain

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrHalfOpenWindow is returned when only one bound of a window is set.
	ErrHalfOpenWindow = errors.New("window must have both begin and end, or neither")

	// ErrInvertedWindow is returned when a window ends before it begins.
	ErrInvertedWindow = errors.New("window end must not be before its begin")
)

// TimeWindow is a closed [Start, End] interval of instants.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Includes reports whether t falls within the window, bounds inclusive.
func (w TimeWindow) Includes(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// After reports whether the window has not started yet at t.
func (w TimeWindow) After(t time.Time) bool {
	return t.Before(w.Start)
}

// Conference owns the proposal and voting windows and the conduct contact.
//
// Each window is stored as a nullable pair. Both bounds are set or both are
// NULL; this is checked by SetProposalWindow/SetVotingWindow, by the
// BeforeSave hook, and by a database CHECK constraint.
type Conference struct {
	ID           uint   `json:"id"            gorm:"primaryKey"`
	Name         string `json:"name"          gorm:"type:varchar(256);not null;uniqueIndex"`
	ConductEmail string `json:"conduct_email" gorm:"type:varchar(256);not null;default:''"`

	ProposalsBegin *time.Time `json:"proposals_begin,omitempty"`
	ProposalsEnd   *time.Time `json:"proposals_end,omitempty"   gorm:"check:ck_proposals_window,(proposals_begin IS NULL AND proposals_end IS NULL) OR (proposals_begin IS NOT NULL AND proposals_end IS NOT NULL)"`
	VotingBegin    *time.Time `json:"voting_begin,omitempty"`
	VotingEnd      *time.Time `json:"voting_end,omitempty"      gorm:"check:ck_voting_window,(voting_begin IS NULL AND voting_end IS NULL) OR (voting_begin IS NOT NULL AND voting_end IS NOT NULL)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conference.
func (Conference) TableName() string { return "conferences" }

// SetVotingWindow validates and assigns the voting window. Passing two nils
// closes voting entirely.
func (c *Conference) SetVotingWindow(begin, end *time.Time) error {
	if err := validateWindow(begin, end); err != nil {
		return err
	}
	c.VotingBegin, c.VotingEnd = utcPtr(begin), utcPtr(end)
	return nil
}

// SetProposalWindow validates and assigns the proposal window.
func (c *Conference) SetProposalWindow(begin, end *time.Time) error {
	if err := validateWindow(begin, end); err != nil {
		return err
	}
	c.ProposalsBegin, c.ProposalsEnd = utcPtr(begin), utcPtr(end)
	return nil
}

// VotingWindow returns the voting window, or nil when voting is not scheduled.
func (c *Conference) VotingWindow() *TimeWindow {
	return window(c.VotingBegin, c.VotingEnd)
}

// ProposalWindow returns the proposal window, or nil when not scheduled.
func (c *Conference) ProposalWindow() *TimeWindow {
	return window(c.ProposalsBegin, c.ProposalsEnd)
}

// VotingAllowed reports whether now is inside the voting window. A missing
// window never allows voting.
func (c *Conference) VotingAllowed(now time.Time) bool {
	if c == nil {
		return false
	}
	w := c.VotingWindow()
	return w != nil && w.Includes(now)
}

// VotingWindowAfter reports whether voting is scheduled but not yet open.
func (c *Conference) VotingWindowAfter(now time.Time) bool {
	w := c.VotingWindow()
	return w != nil && w.After(now)
}

// CreatingProposalsAllowed reports whether now is inside the proposal window.
func (c *Conference) CreatingProposalsAllowed(now time.Time) bool {
	w := c.ProposalWindow()
	return w != nil && w.Includes(now)
}

// EditingProposalsAllowed blocks edits while voting is open and allows them
// while proposals are open or before voting starts.
func (c *Conference) EditingProposalsAllowed(now time.Time) bool {
	if c.VotingAllowed(now) {
		return false
	}
	return c.CreatingProposalsAllowed(now) || c.VotingWindowAfter(now)
}

// BeforeSave rejects half-set windows before they reach the database.
func (c *Conference) BeforeSave(*gorm.DB) error {
	if err := validateWindow(c.ProposalsBegin, c.ProposalsEnd); err != nil {
		return err
	}
	return validateWindow(c.VotingBegin, c.VotingEnd)
}

func validateWindow(begin, end *time.Time) error {
	if (begin == nil) != (end == nil) {
		return ErrHalfOpenWindow
	}
	if begin != nil && end.Before(*begin) {
		return ErrInvertedWindow
	}
	return nil
}

func window(begin, end *time.Time) *TimeWindow {
	if begin == nil || end == nil {
		return nil
	}
	return &TimeWindow{Start: *begin, End: *end}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
