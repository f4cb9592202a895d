// Package services – Prometheus collectors for voting outcomes.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// voteSelections counts SelectCandidate results by outcome.
	voteSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_vote_selections_total",
			Help: "Candidate selections by outcome (selected, exhausted, skips_reclaimed).",
		},
		[]string{"outcome"},
	)

	// votesCast counts successful casts by action.
	votesCast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfp_votes_cast_total",
			Help: "Votes cast by action (vote, skip).",
		},
		[]string{"action"},
	)

	// selectionConflicts counts reservation races lost by a selection attempt.
	selectionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cfp_selection_conflicts_total",
			Help: "Selection attempts that lost a reservation race and were retried.",
		},
	)

	// skipsReclaimed counts skipped votes deleted for re-offering.
	skipsReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cfp_skips_reclaimed_total",
			Help: "Skipped votes deleted so their talks can be offered again.",
		},
	)
)

func init() {
	prometheus.MustRegister(voteSelections, votesCast, selectionConflicts, skipsReclaimed)
}
