package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
	"github.com/match-developers/matchplay/scheduling"
)

// ProgressTracker observes match resolutions and gates round advancement.
// OnMatchResolved runs inside the caller's transaction, after the caller
// has taken the competition row lock, so completeness checks and the
// round-advance mutation form one serialized unit per competition: two
// concurrent "last match of the round" completions cannot both advance.
//
// Returned events must be published by the caller only after the
// transaction commits.
type ProgressTracker interface {
	OnMatchResolved(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) ([]events.Event, error)
}

type progressService struct {
	competitionRepo repositories.CompetitionRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.StandingRepository
	logger          *slog.Logger
}

func NewProgressService(
	competitionRepo repositories.CompetitionRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	logger *slog.Logger,
) ProgressTracker {
	return &progressService{
		competitionRepo: competitionRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		logger:          logger,
	}
}

func (s *progressService) OnMatchResolved(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) ([]events.Event, error) {
	if match.RoundNumber == nil {
		return nil, fmt.Errorf("%w: competition match %d has no round", ErrValidationFailed, match.ID)
	}

	switch competition.Kind {
	case models.KindLeague:
		return s.leagueProgress(ctx, exec, competition, match)
	case models.KindTournament:
		return s.tournamentProgress(ctx, exec, competition, match)
	default:
		return nil, fmt.Errorf("%w: unknown competition kind %q", ErrValidationFailed, competition.Kind)
	}
}

func (s *progressService) leagueProgress(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) ([]events.Event, error) {
	if match.Status == models.MatchStatusCompleted {
		if err := s.applyLeagueStandings(ctx, exec, competition, match); err != nil {
			return nil, err
		}
	}
	// A canceled match contributes no standings but still counts as
	// resolved for round-gating.

	if *match.RoundNumber != competition.CurrentRound {
		// Resolution of a round the pointer is not at. Past rounds are
		// already gated; future rounds are picked up by the catch-up loop
		// below once the pointer reaches them.
		return nil, nil
	}

	// Fixtures may resolve ahead of the round pointer, so every advance
	// re-checks the new current round: a round whose fixtures all resolved
	// early must not strand the competition in active.
	var emitted []events.Event
	current := competition.CurrentRound
	for {
		unresolved, err := s.matchRepo.CountUnresolvedInRound(ctx, exec, competition.ID, current)
		if err != nil {
			return nil, fmt.Errorf("failed to check round completeness: %w", err)
		}
		if unresolved > 0 {
			return emitted, nil
		}

		if current >= competition.TotalRounds {
			if err := s.assignFinalPositions(ctx, exec, competition.ID); err != nil {
				return nil, err
			}
			if err := s.competitionRepo.UpdateProgress(ctx, exec, competition.ID, current, models.CompetitionCompleted); err != nil {
				return nil, fmt.Errorf("failed to complete competition %d: %w", competition.ID, err)
			}
			s.logger.Info("competition completed", slog.Int("competition_id", competition.ID))
			return append(emitted, events.New(events.KindCompetitionCompleted, events.Payload{
				CompetitionID: competition.ID,
				Round:         current,
			})), nil
		}

		next := current + 1
		if err := s.competitionRepo.UpdateProgress(ctx, exec, competition.ID, next, models.CompetitionActive); err != nil {
			return nil, fmt.Errorf("failed to advance competition %d to round %d: %w", competition.ID, next, err)
		}
		s.logger.Info("round advanced",
			slog.Int("competition_id", competition.ID), slog.Int("round", next))
		emitted = append(emitted, events.New(events.KindRoundAdvanced, events.Payload{
			CompetitionID: competition.ID,
			Round:         next,
		}))

		nextFixtures, err := s.matchRepo.ListByCompetition(ctx, exec, competition.ID, &next, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list round %d fixtures: %w", next, err)
		}
		if len(nextFixtures) == 0 {
			return emitted, nil
		}
		current = next
	}
}

func (s *progressService) applyLeagueStandings(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) error {
	if match.HomeScore == nil || match.AwayScore == nil {
		return fmt.Errorf("%w: completed match %d has no score", ErrInvalidMatchResult, match.ID)
	}
	homeScore, awayScore := *match.HomeScore, *match.AwayScore

	home, err := s.standingRepo.GetOrCreate(ctx, exec, competition.ID, match.HomeTeamID)
	if err != nil {
		return err
	}
	away, err := s.standingRepo.GetOrCreate(ctx, exec, competition.ID, match.AwayTeamID)
	if err != nil {
		return err
	}

	home.MatchesPlayed++
	away.MatchesPlayed++
	home.PointsScored += homeScore
	home.PointsConceded += awayScore
	away.PointsScored += awayScore
	away.PointsConceded += homeScore

	switch {
	case homeScore > awayScore:
		home.Wins++
		home.Points += models.PointsForWin
		away.Losses++
		away.Points += models.PointsForLoss
	case awayScore > homeScore:
		away.Wins++
		away.Points += models.PointsForWin
		home.Losses++
		home.Points += models.PointsForLoss
	default:
		home.Draws++
		away.Draws++
		home.Points += models.PointsForDraw
		away.Points += models.PointsForDraw
	}

	if err := s.standingRepo.Update(ctx, exec, home); err != nil {
		return fmt.Errorf("failed to update home standing: %w", err)
	}
	if err := s.standingRepo.Update(ctx, exec, away); err != nil {
		return fmt.Errorf("failed to update away standing: %w", err)
	}
	return nil
}

func (s *progressService) assignFinalPositions(ctx context.Context, exec repositories.SQLExecutor, competitionID int) error {
	standings, err := s.standingRepo.ListRanked(ctx, exec, competitionID)
	if err != nil {
		return fmt.Errorf("failed to rank standings: %w", err)
	}
	for i, standing := range standings {
		position := i + 1
		standing.FinalPosition = &position
		if err := s.standingRepo.Update(ctx, exec, standing); err != nil {
			return fmt.Errorf("failed to set final position for team %d: %w", standing.TeamID, err)
		}
	}
	return nil
}

func (s *progressService) tournamentProgress(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) ([]events.Event, error) {
	// The lifecycle layer rejects cancellation of elimination matches, so
	// only completed matches reach this point; the guard is the safety net.
	if match.Status != models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: match %d resolved as %s", ErrUnresolvedEliminationMatch, match.ID, match.Status)
	}
	if match.WinnerTeamID == nil {
		return nil, fmt.Errorf("%w: elimination match %d has no winner", ErrDrawNotAllowed, match.ID)
	}

	if err := s.applyEliminationStandings(ctx, exec, competition, match); err != nil {
		return nil, err
	}

	round := *match.RoundNumber
	if round != competition.CurrentRound {
		return nil, nil
	}

	unresolved, err := s.matchRepo.CountUnresolvedInRound(ctx, exec, competition.ID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to check round completeness: %w", err)
	}
	if unresolved > 0 {
		return nil, nil
	}

	winners, err := s.roundWinners(ctx, exec, competition.ID, round)
	if err != nil {
		return nil, err
	}

	if len(winners) == 1 {
		return s.crownWinner(ctx, exec, competition, round, winners[0])
	}
	return s.materializeNextRound(ctx, exec, competition, round, winners)
}

func (s *progressService) applyEliminationStandings(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, match *models.Match) error {
	winnerID := *match.WinnerTeamID
	loserID := match.HomeTeamID
	if loserID == winnerID {
		loserID = match.AwayTeamID
	}

	winner, err := s.standingRepo.GetOrCreate(ctx, exec, competition.ID, winnerID)
	if err != nil {
		return err
	}
	loser, err := s.standingRepo.GetOrCreate(ctx, exec, competition.ID, loserID)
	if err != nil {
		return err
	}

	winner.MatchesPlayed++
	winner.Wins++
	if match.HomeScore != nil && match.AwayScore != nil {
		winnerScore, loserScore := *match.HomeScore, *match.AwayScore
		if winnerID == match.AwayTeamID {
			winnerScore, loserScore = loserScore, winnerScore
		}
		winner.PointsScored += winnerScore
		winner.PointsConceded += loserScore
		loser.PointsScored += loserScore
		loser.PointsConceded += winnerScore
	}

	loser.MatchesPlayed++
	loser.Losses++
	loser.AdvancementStatus = models.AdvancementEliminated

	if err := s.standingRepo.Update(ctx, exec, winner); err != nil {
		return fmt.Errorf("failed to update winner standing: %w", err)
	}
	if err := s.standingRepo.Update(ctx, exec, loser); err != nil {
		return fmt.Errorf("failed to update loser standing: %w", err)
	}
	return nil
}

// roundWinners returns winner team ids in bracket order (fixture creation
// order within the round).
func (s *progressService) roundWinners(ctx context.Context, exec repositories.SQLExecutor, competitionID, round int) ([]int, error) {
	completedStatus := models.MatchStatusCompleted
	roundMatches, err := s.matchRepo.ListByCompetition(ctx, exec, competitionID, &round, &completedStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to list round %d matches: %w", round, err)
	}

	winners := make([]int, 0, len(roundMatches))
	for _, m := range roundMatches {
		if m.WinnerTeamID == nil {
			return nil, fmt.Errorf("%w: match %d completed without winner", ErrDrawNotAllowed, m.ID)
		}
		winners = append(winners, *m.WinnerTeamID)
	}
	return winners, nil
}

func (s *progressService) crownWinner(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, round, winnerTeamID int) ([]events.Event, error) {
	standing, err := s.standingRepo.GetOrCreate(ctx, exec, competition.ID, winnerTeamID)
	if err != nil {
		return nil, err
	}
	standing.AdvancementStatus = models.AdvancementWinner
	first := 1
	standing.FinalPosition = &first
	if err := s.standingRepo.Update(ctx, exec, standing); err != nil {
		return nil, fmt.Errorf("failed to crown team %d: %w", winnerTeamID, err)
	}

	if err := s.competitionRepo.UpdateProgress(ctx, exec, competition.ID, round, models.CompetitionCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete competition %d: %w", competition.ID, err)
	}

	s.logger.Info("tournament completed",
		slog.Int("competition_id", competition.ID), slog.Int("winner_team_id", winnerTeamID))
	return []events.Event{events.New(events.KindCompetitionCompleted, events.Payload{
		CompetitionID: competition.ID,
		Round:         round,
		WinnerTeamID:  winnerTeamID,
	})}, nil
}

func (s *progressService) materializeNextRound(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, round int, winners []int) ([]events.Event, error) {
	next := round + 1
	label := scheduling.RoundLabel(len(winners))
	startTime := time.Now().Add(15 * time.Minute)

	nextMatches := make([]*models.Match, 0, len(winners)/2)
	for i := 0; i+1 < len(winners); i += 2 {
		nextMatches = append(nextMatches, &models.Match{
			CompetitionID:   &competition.ID,
			HomeTeamID:      winners[i],
			AwayTeamID:      winners[i+1],
			StartTime:       startTime,
			DurationMinutes: competition.MatchDurationMin,
			Status:          models.MatchStatusScheduled,
			RoundNumber:     &next,
			RoundLabel:      &label,
			IsElimination:   true,
		})
	}

	if err := s.matchRepo.BatchCreate(ctx, exec, nextMatches); err != nil {
		return nil, fmt.Errorf("failed to materialize %s round: %w", label, err)
	}
	if err := s.competitionRepo.UpdateProgress(ctx, exec, competition.ID, next, models.CompetitionActive); err != nil {
		return nil, fmt.Errorf("failed to advance competition %d to round %d: %w", competition.ID, next, err)
	}

	s.logger.Info("bracket round materialized",
		slog.Int("competition_id", competition.ID),
		slog.String("round_label", label),
		slog.Int("fixtures", len(nextMatches)))
	return []events.Event{events.New(events.KindRoundAdvanced, events.Payload{
		CompetitionID: competition.ID,
		Round:         next,
		RoundLabel:    label,
	})}, nil
}
