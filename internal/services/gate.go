// Package services – voting window gate.
package services

import (
	"time"

	"github.com/tbourn/go-cfp-voting/internal/domain"
)

// Gate decides whether voting operations may run for a conference at the
// current instant. Now is injectable for tests and defaults to time.Now.
type Gate struct {
	Now func() time.Time
}

// NewGate returns a Gate on the wall clock.
func NewGate() *Gate { return &Gate{Now: time.Now} }

func (g *Gate) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now().UTC()
	}
	return g.Now().UTC()
}

// Check returns ErrVotingClosed unless conf's voting window contains now. A
// nil conference or an unscheduled window is closed.
func (g *Gate) Check(conf *domain.Conference) error {
	if !conf.VotingAllowed(g.now()) {
		return ErrVotingClosed
	}
	return nil
}

// Phase is what a conference allows at one instant.
type Phase struct {
	At               time.Time
	VotingOpen       bool
	VotingUpcoming   bool
	ProposalsOpen    bool
	EditingProposals bool // frozen while voting runs
}

// Phase evaluates every conference window against a single reading of the
// clock. A nil conference allows nothing.
func (g *Gate) Phase(conf *domain.Conference) Phase {
	p := Phase{At: g.now()}
	if conf == nil {
		return p
	}
	p.VotingOpen = conf.VotingAllowed(p.At)
	p.VotingUpcoming = conf.VotingWindowAfter(p.At)
	p.ProposalsOpen = conf.CreatingProposalsAllowed(p.At)
	p.EditingProposals = conf.EditingProposalsAllowed(p.At)
	return p
}
