package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
	"github.com/match-developers/matchplay/scheduling"
)

// ScheduleService materializes fixtures for a competition: the full
// round-robin calendar for a league, or the opening bracket round for a
// knockout tournament (later rounds are created by the progress tracker as
// winners become known).
//
// Generation is one-shot and first-writer-wins: the competition row is
// locked for the duration, and a second caller fails with
// ErrScheduleAlreadyGenerated rather than duplicating fixtures.
type ScheduleService interface {
	Generate(ctx context.Context, competitionID, callerID int, force bool) ([]*models.Match, error)
}

type scheduleService struct {
	db              TxBeginner
	competitionRepo repositories.CompetitionRepository
	matchRepo       repositories.MatchRepository
	roster          RosterService
	logger          *slog.Logger
}

func NewScheduleService(
	db TxBeginner,
	competitionRepo repositories.CompetitionRepository,
	matchRepo repositories.MatchRepository,
	roster RosterService,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		db:              db,
		competitionRepo: competitionRepo,
		matchRepo:       matchRepo,
		roster:          roster,
		logger:          logger,
	}
}

func (s *scheduleService) Generate(ctx context.Context, competitionID, callerID int, force bool) ([]*models.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	competition, err := s.competitionRepo.GetByIDForUpdate(ctx, tx, competitionID)
	if err != nil {
		return nil, mapCompetitionRepoError(err)
	}

	if callerID != 0 && callerID != competition.OrganizerID {
		return nil, ErrForbiddenOperation
	}
	if competition.Status != models.CompetitionRegistration {
		return nil, fmt.Errorf("%w: status %s", ErrScheduleAlreadyGenerated, competition.Status)
	}

	existing, err := s.matchRepo.CountByCompetition(ctx, tx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count existing matches: %w", err)
	}
	if existing > 0 {
		return nil, ErrScheduleAlreadyGenerated
	}

	teams, err := s.roster.Resolve(ctx, tx, competition)
	if err != nil {
		return nil, err
	}
	if !force && len(teams) != competition.Capacity {
		return nil, fmt.Errorf("%w: enrolled %d of %d", ErrRosterNotFull, len(teams), competition.Capacity)
	}

	var matches []*models.Match
	switch competition.Kind {
	case models.KindLeague:
		matches, err = s.leagueFixtures(competition, teams)
	case models.KindTournament:
		matches, err = s.bracketFixtures(competition, teams)
	default:
		err = fmt.Errorf("%w: unknown competition kind %q", ErrValidationFailed, competition.Kind)
	}
	if err != nil {
		return nil, err
	}

	if err := s.matchRepo.BatchCreate(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to persist fixtures for competition %d: %w", competitionID, err)
	}
	if err := s.competitionRepo.UpdateProgress(ctx, tx, competitionID, 1, models.CompetitionActive); err != nil {
		return nil, fmt.Errorf("failed to activate competition %d: %w", competitionID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule for competition %d: %w", competitionID, err)
	}

	s.logger.Info("schedule generated",
		slog.Int("competition_id", competitionID),
		slog.String("kind", string(competition.Kind)),
		slog.Int("fixtures", len(matches)))

	return matches, nil
}

func (s *scheduleService) leagueFixtures(competition *models.Competition, teams []*models.Team) ([]*models.Match, error) {
	rounds, err := scheduling.RoundRobin(len(teams), competition.TotalRounds)
	if err != nil {
		return nil, mapSchedulingError(err)
	}

	matches := make([]*models.Match, 0, len(teams)/2*competition.TotalRounds)
	for _, round := range rounds {
		for _, p := range round {
			matches = append(matches, s.newFixture(competition, teams[p.Home].ID, teams[p.Away].ID, p.Round, nil, false))
		}
	}
	return matches, nil
}

func (s *scheduleService) bracketFixtures(competition *models.Competition, teams []*models.Team) ([]*models.Match, error) {
	pairings, err := scheduling.SingleElimination(len(teams))
	if err != nil {
		return nil, mapSchedulingError(err)
	}

	label := scheduling.RoundLabel(len(teams))
	matches := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, s.newFixture(competition, teams[p.Home].ID, teams[p.Away].ID, p.Round, &label, true))
	}
	return matches, nil
}

func (s *scheduleService) newFixture(competition *models.Competition, homeID, awayID, round int, label *string, elimination bool) *models.Match {
	startTime := competition.StartDate
	if now := time.Now(); now.After(startTime) {
		startTime = now.Add(15 * time.Minute)
	}
	return &models.Match{
		CompetitionID:   &competition.ID,
		HomeTeamID:      homeID,
		AwayTeamID:      awayID,
		StartTime:       startTime,
		DurationMinutes: competition.MatchDurationMin,
		Status:          models.MatchStatusScheduled,
		RoundNumber:     &round,
		RoundLabel:      label,
		IsElimination:   elimination,
	}
}

func mapSchedulingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrInvalidBracketSize):
		return fmt.Errorf("%w: %v", ErrInvalidBracketSize, err)
	case errors.Is(err, scheduling.ErrTooFewTeams):
		return fmt.Errorf("%w: %v", ErrInsufficientParticipants, err)
	default:
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
}
