// Package domain defines the persistence models for talks, categories, votes
// and conduct reports. These types are mapped with GORM and form the core data
// layer of the voting engine.
package domain

import (
	"time"
)

// Talk states.
const (
	TalkProposed  = "proposed"
	TalkWithdrawn = "withdrawn"
)

// Vote actions accepted by casting.
const (
	ActionVote = "vote"
	ActionSkip = "skip"
)

// Conduct report states.
const (
	ReportReported         = "reported"
	ReportAwaitingResponse = "awaiting_response"
	ReportResolved         = "resolved"
)

// VoteValues is the closed set of values a voter may cast.
var VoteValues = []int{-1, 0, 1}

// ValidVoteValue reports whether v is in VoteValues.
func ValidVoteValue(v int) bool {
	for _, x := range VoteValues {
		if x == v {
			return true
		}
	}
	return false
}

// Talk is a proposal submitted to the CFP. The voting engine reads it only:
// its state, anonymization flag and category membership decide eligibility.
//
// Fields:
//   - State: "proposed" or "withdrawn" (enforced by DB constraint).
//   - IsAnonymized: only anonymized talks are shown to voters.
//   - Anonymized*: the redacted copy voters see.
//   - Categories: many-to-many through talk_categories.
type Talk struct {
	ID                    uint       `json:"id"           gorm:"primaryKey"`
	State                 string     `json:"state"        gorm:"type:varchar(16);not null;default:'proposed';index;check:state IN ('proposed','withdrawn')"`
	Title                 string     `json:"title"        gorm:"type:varchar(512);not null"`
	Length                int        `json:"length"       gorm:"not null;default:0"`
	Description           string     `json:"description"  gorm:"type:text"`
	IsAnonymized          bool       `json:"is_anonymized" gorm:"not null;default:false"`
	AnonymizedTitle       string     `json:"-"            gorm:"type:varchar(512)"`
	AnonymizedDescription string     `json:"-"            gorm:"type:text"`
	Categories            []Category `json:"-"            gorm:"many2many:talk_categories;"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Talk.
func (Talk) TableName() string { return "talks" }

// Category groups talks within one conference. Names are unique per
// conference.
type Category struct {
	ID           uint       `json:"id"   gorm:"primaryKey"`
	ConferenceID uint       `json:"conference_id" gorm:"not null;uniqueIndex:ux_conference_category,priority:1"`
	Name         string     `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_conference_category,priority:2"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Conference   Conference `json:"-"    gorm:"foreignKey:ConferenceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// TalkCategory is the join row between talks and categories.
type TalkCategory struct {
	TalkID     uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName returns the database table name for TalkCategory.
func (TalkCategory) TableName() string { return "talk_categories" }

// Vote is one voter's relationship to one talk: reserved, skipped or decided.
// The composite primary key (talk_id, user_id) guarantees a voter never holds
// two votes for the same talk.
//
// Fields:
//   - PublicID: random UUID used in URLs instead of the talk id.
//   - Value: nil until decided, then one of -1, 0, 1 (DB check).
//   - Skipped: nil while undecided, true when deferred, false once voted.
type Vote struct {
	TalkID    uint      `json:"-"          gorm:"primaryKey;autoIncrement:false"`
	UserID    string    `json:"-"          gorm:"type:varchar(64);primaryKey;index:idx_votes_user_created,priority:1"`
	PublicID  string    `json:"public_id"  gorm:"type:char(36);not null;uniqueIndex"`
	Value     *int      `json:"value"      gorm:"check:ck_vote_values,value IS NULL OR value IN (-1, 0, 1)"`
	Skipped   *bool     `json:"skipped"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_votes_user_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	// Talk is the voted talk. Votes are cascade-deleted with the talk.
	Talk Talk `json:"-" gorm:"foreignKey:TalkID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Pending reports whether the vote is a reservation awaiting a decision.
func (v *Vote) Pending() bool { return v.Value == nil && v.Skipped == nil }

// IsSkipped reports whether the voter deferred this talk.
func (v *Vote) IsSkipped() bool { return v.Skipped != nil && *v.Skipped }

// Status returns "pending", "skipped" or "voted".
func (v *Vote) Status() string {
	switch {
	case v.IsSkipped():
		return "skipped"
	case v.Value != nil:
		return "voted"
	default:
		return "pending"
	}
}

// ConductReport is a code-of-conduct concern raised about a talk. UserID is
// nil when the reporter chose to stay anonymous.
type ConductReport struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	TalkID    uint      `json:"talk_id"    gorm:"not null;index"`
	UserID    *string   `json:"-"          gorm:"type:varchar(64)"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	Status    string    `json:"status"     gorm:"type:varchar(32);not null;default:'reported';check:status IN ('reported','awaiting_response','resolved')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Talk Talk `json:"-" gorm:"foreignKey:TalkID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ConductReport.
func (ConductReport) TableName() string { return "conduct_reports" }
