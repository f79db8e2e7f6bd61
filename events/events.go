// Package events carries the engine's side channel: every scheduling
// milestone and match transition is published as an Event for the feed
// subsystem to fan out. Delivery is best-effort; a notification failure
// never rolls back engine state.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCompetitionCreated   Kind = "competition_created"
	KindCompetitionFull      Kind = "competition_full"
	KindRoundAdvanced        Kind = "round_advanced"
	KindCompetitionCompleted Kind = "competition_completed"
	KindMatchStarted         Kind = "match_started"
	KindMatchCompleted       Kind = "match_completed"
)

// Event is the envelope handed to the feed subsystem. Payload carries only
// the identifiers the renderer needs; the feed store owns everything else.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Payload   `json:"payload"`
}

type Payload struct {
	CompetitionID int    `json:"competition_id,omitempty"`
	MatchID       int    `json:"match_id,omitempty"`
	Round         int    `json:"round,omitempty"`
	RoundLabel    string `json:"round_label,omitempty"`
	WinnerTeamID  int    `json:"winner_team_id,omitempty"`
	// TeamIDs lists the participants an event fans out to (one feed post
	// per participant's followers).
	TeamIDs []int `json:"team_ids,omitempty"`
}

// Notifier receives engine events. Implementations must not block the
// caller; the engine treats notification as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// New builds an event envelope with a fresh id and timestamp.
func New(kind Kind, payload Payload) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
