package models

import "time"

// AdvancementStatus tracks a team's fate in knockout play.
type AdvancementStatus string

const (
	AdvancementInProgress AdvancementStatus = "in_progress"
	AdvancementEliminated AdvancementStatus = "eliminated"
	AdvancementWinner     AdvancementStatus = "winner"
)

// CompetitionStanding is the per-team, per-competition aggregate record.
// It is created lazily on enrollment and mutated only by the progress
// tracker, exactly once per match completion.
type CompetitionStanding struct {
	ID                int               `json:"id" db:"id"`
	CompetitionID     int               `json:"competition_id" db:"competition_id"`
	TeamID            int               `json:"team_id" db:"team_id"`
	Points            int               `json:"points" db:"points"`
	MatchesPlayed     int               `json:"matches_played" db:"matches_played"`
	Wins              int               `json:"wins" db:"wins"`
	Draws             int               `json:"draws" db:"draws"`
	Losses            int               `json:"losses" db:"losses"`
	PointsScored      int               `json:"points_scored" db:"points_scored"`
	PointsConceded    int               `json:"points_conceded" db:"points_conceded"`
	AdvancementStatus AdvancementStatus `json:"advancement_status" db:"advancement_status"`
	FinalPosition     *int              `json:"final_position,omitempty" db:"final_position"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// League scoring, applied by the progress tracker.
const (
	PointsForWin  = 3
	PointsForDraw = 1
	PointsForLoss = 0
)

// ScoreDifference is the ranking tie-breaker after points.
func (s *CompetitionStanding) ScoreDifference() int {
	return s.PointsScored - s.PointsConceded
}
