package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
)

// StandingsArchiver receives a best-effort hand-off when a competition
// completes, and drops the snapshot again when the competition is deleted.
// Failures are logged by the implementation, never returned to the caller.
type StandingsArchiver interface {
	ArchiveStandings(ctx context.Context, competitionID int)
	RemoveStandings(ctx context.Context, competitionID int)
}

// MatchService owns the match lifecycle state machine. The same machine
// drives standalone friendlies and competition fixtures; the only
// difference is that a fixture resolution is handed to the progress
// tracker inside the same transaction.
type MatchService interface {
	CreateFriendly(ctx context.Context, input CreateFriendlyInput) (*models.Match, error)
	Get(ctx context.Context, id int) (*models.Match, error)
	ListByCompetition(ctx context.Context, competitionID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	Start(ctx context.Context, matchID int) (*models.Match, error)
	Complete(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error)
	Cancel(ctx context.Context, matchID int) (*models.Match, error)
}

type CreateFriendlyInput struct {
	HomeTeamID      int       `json:"home_team_id"`
	AwayTeamID      int       `json:"away_team_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

type matchService struct {
	db              TxBeginner
	matchRepo       repositories.MatchRepository
	teamRepo        repositories.TeamRepository
	competitionRepo repositories.CompetitionRepository
	tracker         ProgressTracker
	notifier        events.Notifier
	archiver        StandingsArchiver
	logger          *slog.Logger
}

func NewMatchService(
	db TxBeginner,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	competitionRepo repositories.CompetitionRepository,
	tracker ProgressTracker,
	notifier events.Notifier,
	archiver StandingsArchiver,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:              db,
		matchRepo:       matchRepo,
		teamRepo:        teamRepo,
		competitionRepo: competitionRepo,
		tracker:         tracker,
		notifier:        notifier,
		archiver:        archiver,
		logger:          logger,
	}
}

func (s *matchService) CreateFriendly(ctx context.Context, input CreateFriendlyInput) (*models.Match, error) {
	if input.HomeTeamID == input.AwayTeamID {
		return nil, fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
	}
	if _, err := s.teamRepo.GetByID(ctx, nil, input.HomeTeamID); err != nil {
		return nil, mapTeamRepoError(err)
	}
	if _, err := s.teamRepo.GetByID(ctx, nil, input.AwayTeamID); err != nil {
		return nil, mapTeamRepoError(err)
	}
	if input.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidationFailed)
	}

	match := &models.Match{
		HomeTeamID:      input.HomeTeamID,
		AwayTeamID:      input.AwayTeamID,
		StartTime:       input.StartTime,
		DurationMinutes: input.DurationMinutes,
		Status:          models.MatchStatusScheduled,
	}
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to create friendly match: %w", err)
	}
	return match, nil
}

func (s *matchService) Get(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *matchService) ListByCompetition(ctx context.Context, competitionID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByCompetition(ctx, nil, competitionID, round, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for competition %d: %w", competitionID, err)
	}
	return matches, nil
}

func (s *matchService) Start(ctx context.Context, matchID int) (*models.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if !match.Status.CanTransitionTo(models.MatchStatusOngoing) {
		return nil, fmt.Errorf("%w: cannot start a %s match", ErrInvalidTransition, match.Status)
	}

	if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchStatusOngoing); err != nil {
		return nil, fmt.Errorf("failed to start match %d: %w", matchID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match start: %w", err)
	}
	match.Status = models.MatchStatusOngoing

	s.notifier.Notify(ctx, events.New(events.KindMatchStarted, events.Payload{
		CompetitionID: derefInt(match.CompetitionID),
		MatchID:       match.ID,
		TeamIDs:       []int{match.HomeTeamID, match.AwayTeamID},
	}))
	return match, nil
}

func (s *matchService) Complete(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error) {
	if result.HomeScore < 0 || result.AwayScore < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrInvalidMatchResult)
	}

	match, competition, resolved, err := s.resolve(ctx, matchID, models.MatchStatusCompleted, &result)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, events.New(events.KindMatchCompleted, events.Payload{
		CompetitionID: derefInt(match.CompetitionID),
		MatchID:       match.ID,
		TeamIDs:       []int{match.HomeTeamID, match.AwayTeamID},
		WinnerTeamID:  derefInt(match.WinnerTeamID),
	}))
	s.publishProgress(ctx, competition, resolved)
	return match, nil
}

func (s *matchService) Cancel(ctx context.Context, matchID int) (*models.Match, error) {
	match, competition, resolved, err := s.resolve(ctx, matchID, models.MatchStatusCanceled, nil)
	if err != nil {
		return nil, err
	}

	s.publishProgress(ctx, competition, resolved)
	return match, nil
}

// resolve drives a match into a terminal state and, for competition
// fixtures, runs the progress tracker in the same transaction. The
// competition row lock is taken before the match row so concurrent
// resolutions of sibling fixtures serialize on the competition.
func (s *matchService) resolve(ctx context.Context, matchID int, target models.MatchStatus, result *models.MatchResult) (*models.Match, *models.Competition, []events.Event, error) {
	peek, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, nil, nil, mapMatchRepoError(err)
	}

	if target == models.MatchStatusCanceled && peek.IsElimination {
		// No well-defined winner for the bracket slot; the organizer has
		// to resolve the tie another way. Rejected before any mutation.
		return nil, nil, nil, ErrUnresolvedEliminationMatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var competition *models.Competition
	if peek.CompetitionID != nil {
		competition, err = s.competitionRepo.GetByIDForUpdate(ctx, tx, *peek.CompetitionID)
		if err != nil {
			return nil, nil, nil, mapCompetitionRepoError(err)
		}
	}

	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, nil, nil, mapMatchRepoError(err)
	}
	if !match.Status.CanTransitionTo(target) {
		return nil, nil, nil, fmt.Errorf("%w: cannot move a %s match to %s", ErrInvalidTransition, match.Status, target)
	}

	if target == models.MatchStatusCompleted {
		if match.IsElimination && result.IsDraw() {
			return nil, nil, nil, ErrDrawNotAllowed
		}
		winner := result.WinnerOf(match)
		if err := s.matchRepo.UpdateResult(ctx, tx, matchID, result.HomeScore, result.AwayScore, winner, target); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to persist result for match %d: %w", matchID, err)
		}
		homeScore, awayScore := result.HomeScore, result.AwayScore
		match.HomeScore = &homeScore
		match.AwayScore = &awayScore
		match.WinnerTeamID = winner
	} else {
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, target); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to cancel match %d: %w", matchID, err)
		}
	}
	match.Status = target

	var resolved []events.Event
	if competition != nil {
		resolved, err = s.tracker.OnMatchResolved(ctx, tx, competition, match)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to commit match resolution: %w", err)
	}
	return match, competition, resolved, nil
}

// publishProgress emits the tracker's events after commit and hands a
// completed competition to the standings archiver.
func (s *matchService) publishProgress(ctx context.Context, competition *models.Competition, resolved []events.Event) {
	for _, event := range resolved {
		s.notifier.Notify(ctx, event)
		if event.Kind == events.KindCompetitionCompleted && competition != nil {
			s.archiver.ArchiveStandings(ctx, competition.ID)
		}
	}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
