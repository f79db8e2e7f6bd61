package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/match-developers/matchplay/models"
)

var ErrStandingNotFound = errors.New("competition standing not found")

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.CompetitionStanding) error
	GetByCompetitionAndTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.CompetitionStanding) error
	// ListRanked orders the table win-points first, then score difference,
	// then points scored, with team id as the stable tail.
	ListRanked(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.CompetitionStanding, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `
	id, competition_id, team_id, points, matches_played, wins, draws, losses,
	points_scored, points_conceded, advancement_status, final_position, updated_at`

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, standing *models.CompetitionStanding) error {
	executor := r.getExecutor(exec)
	if standing.UpdatedAt.IsZero() {
		standing.UpdatedAt = time.Now()
	}
	query := `
		INSERT INTO competition_standings
			(competition_id, team_id, points, matches_played, wins, draws, losses,
			 points_scored, points_conceded, advancement_status, final_position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		standing.CompetitionID, standing.TeamID, standing.Points, standing.MatchesPlayed,
		standing.Wins, standing.Draws, standing.Losses, standing.PointsScored,
		standing.PointsConceded, standing.AdvancementStatus, standing.FinalPosition,
		standing.UpdatedAt,
	).Scan(&standing.ID)
}

func (r *postgresStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.CompetitionStanding, error) {
	var s models.CompetitionStanding
	err := rowScanner.Scan(
		&s.ID, &s.CompetitionID, &s.TeamID, &s.Points, &s.MatchesPlayed,
		&s.Wins, &s.Draws, &s.Losses, &s.PointsScored, &s.PointsConceded,
		&s.AdvancementStatus, &s.FinalPosition, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) GetByCompetitionAndTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + standingColumns + `
		FROM competition_standings
		WHERE competition_id = $1 AND team_id = $2`
	return r.scanStanding(executor.QueryRowContext(ctx, query, competitionID, teamID))
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error) {
	standing, err := r.GetByCompetitionAndTeam(ctx, exec, competitionID, teamID)
	if err != nil {
		if errors.Is(err, ErrStandingNotFound) {
			fresh := &models.CompetitionStanding{
				CompetitionID:     competitionID,
				TeamID:            teamID,
				AdvancementStatus: models.AdvancementInProgress,
				UpdatedAt:         time.Now(),
			}
			if createErr := r.Create(ctx, exec, fresh); createErr != nil {
				return nil, fmt.Errorf("failed to create standing for competition %d team %d: %w", competitionID, teamID, createErr)
			}
			return fresh, nil
		}
		return nil, err
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.CompetitionStanding) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE competition_standings SET
			points = $1, matches_played = $2, wins = $3, draws = $4, losses = $5,
			points_scored = $6, points_conceded = $7, advancement_status = $8,
			final_position = $9, updated_at = NOW()
		WHERE id = $10`
	result, err := executor.ExecContext(ctx, query,
		standing.Points, standing.MatchesPlayed, standing.Wins, standing.Draws,
		standing.Losses, standing.PointsScored, standing.PointsConceded,
		standing.AdvancementStatus, standing.FinalPosition, standing.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListRanked(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.CompetitionStanding, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + standingColumns + `
		FROM competition_standings
		WHERE competition_id = $1
		ORDER BY points DESC, (points_scored - points_conceded) DESC, points_scored DESC, team_id ASC`

	rows, err := executor.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.CompetitionStanding, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}
