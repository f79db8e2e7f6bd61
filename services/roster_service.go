package services

import (
	"context"
	"fmt"

	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
)

// RosterService resolves a competition's competing units in enrollment
// order. It is a pure read: schedule generation stays a separate, explicit
// step so organizers can inspect the roster before committing to fixtures.
type RosterService interface {
	Resolve(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition) ([]*models.Team, error)
}

type rosterService struct {
	teamRepo repositories.TeamRepository
}

func NewRosterService(teamRepo repositories.TeamRepository) RosterService {
	return &rosterService{teamRepo: teamRepo}
}

func (s *rosterService) Resolve(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByCompetition(ctx, exec, competition.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for competition %d: %w", competition.ID, err)
	}

	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInsufficientParticipants, len(teams))
	}
	// Knockout play pairs without byes; an odd roster cannot be paired at
	// all there, and the power-of-two requirement is enforced by the
	// bracket scheduler on top of this.
	if competition.IsKnockout() && len(teams)%2 != 0 {
		return nil, fmt.Errorf("%w: odd roster of %d requires byes", ErrInsufficientParticipants, len(teams))
	}

	return teams, nil
}
