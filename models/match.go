package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusOngoing   MatchStatus = "ongoing"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
)

// IsTerminal reports whether no further transition is legal from s.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCanceled
}

// CanTransitionTo encodes the match lifecycle:
// scheduled -> ongoing -> completed, with cancellation allowed from
// scheduled and ongoing. Terminal states allow nothing.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	switch s {
	case MatchStatusScheduled:
		return next == MatchStatusOngoing || next == MatchStatusCanceled
	case MatchStatusOngoing:
		return next == MatchStatusCompleted || next == MatchStatusCanceled
	default:
		return false
	}
}

type Match struct {
	ID              int         `json:"id" db:"id"`
	CompetitionID   *int        `json:"competition_id,omitempty" db:"competition_id"`
	HomeTeamID      int         `json:"home_team_id" db:"home_team_id"`
	AwayTeamID      int         `json:"away_team_id" db:"away_team_id"`
	StartTime       time.Time   `json:"start_time" db:"start_time"`
	DurationMinutes int         `json:"duration_minutes" db:"duration_minutes"`
	Status          MatchStatus `json:"status" db:"status"`
	HomeScore       *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore       *int        `json:"away_score,omitempty" db:"away_score"`
	WinnerTeamID    *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	RoundNumber     *int        `json:"round_number,omitempty" db:"round_number"`
	RoundLabel      *string     `json:"round_label,omitempty" db:"round_label"`
	IsElimination   bool        `json:"is_elimination" db:"is_elimination"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`

	HomeTeam *Team `json:"home_team,omitempty" db:"-"`
	AwayTeam *Team `json:"away_team,omitempty" db:"-"`
}

// MatchResult is the final outcome reported on completion.
type MatchResult struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

// WinnerOf returns the winning team id for the match, or nil on a draw.
func (r MatchResult) WinnerOf(m *Match) *int {
	switch {
	case r.HomeScore > r.AwayScore:
		id := m.HomeTeamID
		return &id
	case r.AwayScore > r.HomeScore:
		id := m.AwayTeamID
		return &id
	default:
		return nil
	}
}

func (r MatchResult) IsDraw() bool {
	return r.HomeScore == r.AwayScore
}
