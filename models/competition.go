package models

import "time"

// CompetitionKind distinguishes the two scheduling formats carried by a
// single Competition entity: a round-robin league and a single-elimination
// knockout tournament.
type CompetitionKind string

const (
	KindLeague     CompetitionKind = "league"
	KindTournament CompetitionKind = "tournament"
)

// ParticipantMode says what a roster slot holds: a club joining with its own
// team, or an individual user wrapped into a singleton team at enrollment.
type ParticipantMode string

const (
	ModeClub       ParticipantMode = "club"
	ModeIndividual ParticipantMode = "individual"
)

type SchedulingPolicy string

const (
	PolicyOrganizerBased SchedulingPolicy = "organizer_based"
	PolicyDeadlineBased  SchedulingPolicy = "deadline_based"
)

type CompetitionStatus string

const (
	CompetitionRegistration CompetitionStatus = "registration"
	CompetitionActive       CompetitionStatus = "active"
	CompetitionCompleted    CompetitionStatus = "completed"
	CompetitionCanceled     CompetitionStatus = "canceled"
)

type Competition struct {
	ID               int               `json:"id" db:"id"`
	OrganizerID      int               `json:"organizer_id" db:"organizer_id"`
	Name             string            `json:"name" db:"name"`
	Description      *string           `json:"description,omitempty" db:"description"`
	Kind             CompetitionKind   `json:"kind" db:"kind"`
	ParticipantMode  ParticipantMode   `json:"participant_mode" db:"participant_mode"`
	TotalRounds      int               `json:"total_rounds" db:"total_rounds"`
	CurrentRound     int               `json:"current_round" db:"current_round"`
	StartDate        time.Time         `json:"start_date" db:"start_date"`
	Deadline         time.Time         `json:"deadline" db:"deadline"`
	Capacity         int               `json:"capacity" db:"capacity"`
	SchedulingPolicy SchedulingPolicy  `json:"scheduling_policy" db:"scheduling_policy"`
	Status           CompetitionStatus `json:"status" db:"status"`
	MatchDurationMin int               `json:"match_duration_minutes" db:"match_duration_minutes"`
	WinningMethodID  *int              `json:"winning_method_id,omitempty" db:"winning_method_id"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`

	WinningMethod *WinningMethod        `json:"winning_method,omitempty" db:"-"`
	Teams         []Team                `json:"teams,omitempty" db:"-"`
	Matches       []Match               `json:"matches,omitempty" db:"-"`
	Standings     []CompetitionStanding `json:"standings,omitempty" db:"-"`
}

// IsKnockout reports whether matches in this competition are elimination
// matches (a draw is never a valid terminal score).
func (c *Competition) IsKnockout() bool {
	return c.Kind == KindTournament
}
