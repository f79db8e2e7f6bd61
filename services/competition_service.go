package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
	"github.com/match-developers/matchplay/scheduling"
)

type CompetitionService interface {
	Create(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error)
	Get(ctx context.Context, id int) (*models.Competition, error)
	List(ctx context.Context, status *models.CompetitionStatus, limit, offset int) ([]*models.Competition, error)
	Join(ctx context.Context, competitionID int, input JoinInput) (*models.Team, error)
	Standings(ctx context.Context, competitionID int) ([]*models.CompetitionStanding, error)
	Cancel(ctx context.Context, competitionID, callerID int) error
	Delete(ctx context.Context, competitionID, callerID int) error
}

type CreateCompetitionInput struct {
	OrganizerID      int                     `json:"-"`
	Name             string                  `json:"name"`
	Description      *string                 `json:"description,omitempty"`
	Kind             models.CompetitionKind  `json:"kind"`
	ParticipantMode  models.ParticipantMode  `json:"participant_mode"`
	TotalRounds      int                     `json:"total_rounds"`
	StartDate        time.Time               `json:"start_date"`
	Deadline         time.Time               `json:"deadline"`
	Capacity         int                     `json:"capacity"`
	SchedulingPolicy models.SchedulingPolicy `json:"scheduling_policy"`
	MatchDurationMin int                     `json:"match_duration_minutes"`
	WinningMethodID  *int                    `json:"winning_method_id,omitempty"`
}

// JoinInput enrolls either an existing club team or an individual user.
// Individuals are wrapped into a singleton team here, at enrollment time,
// so the roster is already materialized when a schedule is generated.
type JoinInput struct {
	TeamID   *int   `json:"team_id,omitempty"`
	UserID   *int   `json:"user_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
}

type competitionService struct {
	db              TxBeginner
	competitionRepo repositories.CompetitionRepository
	teamRepo        repositories.TeamRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.StandingRepository
	methodRepo      repositories.WinningMethodRepository
	notifier        events.Notifier
	archiver        StandingsArchiver
	logger          *slog.Logger
}

func NewCompetitionService(
	db TxBeginner,
	competitionRepo repositories.CompetitionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	methodRepo repositories.WinningMethodRepository,
	notifier events.Notifier,
	archiver StandingsArchiver,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		db:              db,
		competitionRepo: competitionRepo,
		teamRepo:        teamRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		methodRepo:      methodRepo,
		notifier:        notifier,
		archiver:        archiver,
		logger:          logger,
	}
}

func (s *competitionService) Create(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error) {
	if input.Name == "" {
		return nil, ErrCompetitionNameRequired
	}
	if err := validateCompetitionDates(input.StartDate, input.Deadline); err != nil {
		return nil, err
	}
	if input.Capacity < 2 {
		return nil, ErrCompetitionInvalidCap
	}

	totalRounds := input.TotalRounds
	switch input.Kind {
	case models.KindLeague:
		if totalRounds == 0 {
			totalRounds = scheduling.FullCycleRounds(input.Capacity)
		}
		if totalRounds < 1 {
			return nil, ErrCompetitionInvalidRounds
		}
	case models.KindTournament:
		// Bracket capacity and depth are locked together; auto-inserting
		// byes is an organizer decision the engine refuses to make.
		if !scheduling.IsPowerOfTwo(input.Capacity) {
			return nil, fmt.Errorf("%w: capacity %d", ErrInvalidBracketSize, input.Capacity)
		}
		totalRounds = scheduling.BracketRounds(input.Capacity)
	default:
		return nil, fmt.Errorf("%w: unknown competition kind %q", ErrValidationFailed, input.Kind)
	}

	if input.WinningMethodID != nil {
		method, err := s.methodRepo.GetByID(ctx, nil, *input.WinningMethodID)
		if err != nil {
			if err == repositories.ErrWinningMethodNotFound {
				return nil, ErrWinningMethodNotFound
			}
			return nil, err
		}
		// A knockout stage needs a decisive result from every match.
		if input.Kind == models.KindTournament && method.AllowsDraw {
			return nil, fmt.Errorf("%w: winning method %q permits draws", ErrDrawNotAllowed, method.Name)
		}
	}

	competition := &models.Competition{
		OrganizerID:      input.OrganizerID,
		Name:             input.Name,
		Description:      input.Description,
		Kind:             input.Kind,
		ParticipantMode:  input.ParticipantMode,
		TotalRounds:      totalRounds,
		CurrentRound:     1,
		StartDate:        input.StartDate,
		Deadline:         input.Deadline,
		Capacity:         input.Capacity,
		SchedulingPolicy: input.SchedulingPolicy,
		Status:           models.CompetitionRegistration,
		MatchDurationMin: input.MatchDurationMin,
		WinningMethodID:  input.WinningMethodID,
	}
	if competition.ParticipantMode == "" {
		competition.ParticipantMode = models.ModeIndividual
	}
	if competition.SchedulingPolicy == "" {
		competition.SchedulingPolicy = models.PolicyOrganizerBased
	}

	if err := s.competitionRepo.Create(ctx, nil, competition); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}

	s.logger.Info("competition created",
		slog.Int("competition_id", competition.ID),
		slog.String("kind", string(competition.Kind)))
	s.notifier.Notify(ctx, events.New(events.KindCompetitionCreated, events.Payload{
		CompetitionID: competition.ID,
	}))
	return competition, nil
}

func (s *competitionService) Get(ctx context.Context, id int) (*models.Competition, error) {
	competition, err := s.competitionRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapCompetitionRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.teamRepo.ListByCompetition(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		competition.Teams = teamsToValues(teams)
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByCompetition(gCtx, nil, id, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		competition.Matches = matchesToValues(matches)
		return nil
	})

	g.Go(func() error {
		standings, err := s.standingRepo.ListRanked(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to load standings: %w", err)
		}
		competition.Standings = standingsToValues(standings)
		return nil
	})

	if competition.WinningMethodID != nil {
		methodID := *competition.WinningMethodID
		g.Go(func() error {
			method, err := s.methodRepo.GetByID(gCtx, nil, methodID)
			if err != nil {
				return fmt.Errorf("failed to load winning method: %w", err)
			}
			competition.WinningMethod = method
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return competition, nil
}

func (s *competitionService) List(ctx context.Context, status *models.CompetitionStatus, limit, offset int) ([]*models.Competition, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.competitionRepo.List(ctx, nil, status, limit, offset)
}

func (s *competitionService) Join(ctx context.Context, competitionID int, input JoinInput) (*models.Team, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	competition, err := s.competitionRepo.GetByIDForUpdate(ctx, tx, competitionID)
	if err != nil {
		return nil, mapCompetitionRepoError(err)
	}

	// Enrollment ends at the advertised start; the deadline only bounds
	// how long a deadline_based competition may wait for a full roster.
	if competition.Status != models.CompetitionRegistration || time.Now().After(competition.StartDate) {
		return nil, ErrRegistrationClosed
	}

	enrolled, err := s.competitionRepo.CountEnrolled(ctx, tx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollment: %w", err)
	}
	if enrolled >= competition.Capacity {
		return nil, ErrCompetitionFull
	}

	team, err := s.resolveJoiningTeam(ctx, tx, competition, input, enrolled+1)
	if err != nil {
		return nil, err
	}

	if err := s.competitionRepo.EnrollTeam(ctx, tx, competitionID, team.ID, enrolled+1); err != nil {
		if err == repositories.ErrTeamAlreadyEnrolled {
			return nil, fmt.Errorf("%w: team %d", ErrValidationFailed, team.ID)
		}
		return nil, fmt.Errorf("failed to enroll team %d: %w", team.ID, err)
	}
	// Standings exist from enrollment on, so the table renders before the
	// first match completes.
	if _, err := s.standingRepo.GetOrCreate(ctx, tx, competitionID, team.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment: %w", err)
	}

	if enrolled+1 == competition.Capacity {
		s.notifier.Notify(ctx, events.New(events.KindCompetitionFull, events.Payload{
			CompetitionID: competitionID,
		}))
	}
	return team, nil
}

func (s *competitionService) resolveJoiningTeam(ctx context.Context, exec repositories.SQLExecutor, competition *models.Competition, input JoinInput, position int) (*models.Team, error) {
	switch competition.ParticipantMode {
	case models.ModeClub:
		if input.TeamID == nil {
			return nil, fmt.Errorf("%w: team_id is required for club competitions", ErrValidationFailed)
		}
		team, err := s.teamRepo.GetByID(ctx, exec, *input.TeamID)
		if err != nil {
			return nil, mapTeamRepoError(err)
		}
		return team, nil

	case models.ModeIndividual:
		if input.UserID == nil {
			return nil, fmt.Errorf("%w: user_id is required for individual competitions", ErrValidationFailed)
		}
		name := input.TeamName
		if name == "" {
			name = fmt.Sprintf("%s team %d", competition.Name, position)
		}
		team := &models.Team{
			Name:      name,
			MemberIDs: []int64{int64(*input.UserID)},
		}
		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			return nil, fmt.Errorf("failed to create singleton team: %w", err)
		}
		return team, nil

	default:
		return nil, fmt.Errorf("%w: unknown participant mode %q", ErrValidationFailed, competition.ParticipantMode)
	}
}

// Cancel stops a competition: remaining fixtures are canceled alongside it
// in one transaction. Completed competitions are immutable.
func (s *competitionService) Cancel(ctx context.Context, competitionID, callerID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	competition, err := s.competitionRepo.GetByIDForUpdate(ctx, tx, competitionID)
	if err != nil {
		return mapCompetitionRepoError(err)
	}
	if callerID != 0 && callerID != competition.OrganizerID {
		return ErrForbiddenOperation
	}
	if competition.Status == models.CompetitionCompleted || competition.Status == models.CompetitionCanceled {
		return fmt.Errorf("%w: competition is %s", ErrCompetitionNotInProgress, competition.Status)
	}

	matches, err := s.matchRepo.ListByCompetition(ctx, tx, competitionID, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to list fixtures: %w", err)
	}
	for _, m := range matches {
		if m.Status.IsTerminal() {
			continue
		}
		if err := s.matchRepo.UpdateStatus(ctx, tx, m.ID, models.MatchStatusCanceled); err != nil {
			return fmt.Errorf("failed to cancel fixture %d: %w", m.ID, err)
		}
	}

	if err := s.competitionRepo.UpdateStatus(ctx, tx, competitionID, models.CompetitionCanceled); err != nil {
		return fmt.Errorf("failed to cancel competition %d: %w", competitionID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.logger.Info("competition canceled",
		slog.Int("competition_id", competitionID),
		slog.Int("fixtures_canceled", len(matches)))
	return nil
}

// Delete removes a competition that never started. Anything past
// registration is history and can only be canceled, not erased.
func (s *competitionService) Delete(ctx context.Context, competitionID, callerID int) error {
	competition, err := s.competitionRepo.GetByID(ctx, nil, competitionID)
	if err != nil {
		return mapCompetitionRepoError(err)
	}
	if callerID != 0 && callerID != competition.OrganizerID {
		return ErrForbiddenOperation
	}
	if competition.Status != models.CompetitionRegistration {
		return fmt.Errorf("%w: only registration-stage competitions can be deleted", ErrValidationFailed)
	}
	if err := s.competitionRepo.Delete(ctx, nil, competitionID); err != nil {
		return mapCompetitionRepoError(err)
	}
	s.archiver.RemoveStandings(ctx, competitionID)
	return nil
}

func (s *competitionService) Standings(ctx context.Context, competitionID int) ([]*models.CompetitionStanding, error) {
	if _, err := s.competitionRepo.GetByID(ctx, nil, competitionID); err != nil {
		return nil, mapCompetitionRepoError(err)
	}
	return s.standingRepo.ListRanked(ctx, nil, competitionID)
}

func teamsToValues(in []*models.Team) []models.Team {
	out := make([]models.Team, 0, len(in))
	for _, t := range in {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}

func matchesToValues(in []*models.Match) []models.Match {
	out := make([]models.Match, 0, len(in))
	for _, m := range in {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

func standingsToValues(in []*models.CompetitionStanding) []models.CompetitionStanding {
	out := make([]models.CompetitionStanding, 0, len(in))
	for _, s := range in {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
