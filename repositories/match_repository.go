package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/match-developers/matchplay/models"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchCompetitionInvalid = errors.New("match competition conflict or invalid")
	ErrMatchTeamInvalid        = errors.New("match team conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// CountUnresolvedInRound counts matches of a round still in scheduled
	// or ongoing status. Zero means the round is resolved.
	CountUnresolvedInRound(ctx context.Context, exec SQLExecutor, competitionID, round int) (int, error)
	CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, homeScore, awayScore int, winnerTeamID *int, status models.MatchStatus) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, competition_id, home_team_id, away_team_id, start_time, duration_minutes,
	status, home_score, away_score, winner_team_id, round_number, round_label,
	is_elimination, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(competition_id, home_team_id, away_team_id, start_time, duration_minutes,
			 status, round_number, round_label, is_elimination)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.CompetitionID, match.HomeTeamID, match.AwayTeamID, match.StartTime,
		match.DurationMinutes, match.Status, match.RoundNumber, match.RoundLabel,
		match.IsElimination,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	for _, match := range matches {
		if err := r.Create(ctx, exec, match); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.CompetitionID, &m.HomeTeamID, &m.AwayTeamID, &m.StartTime,
		&m.DurationMinutes, &m.Status, &m.HomeScore, &m.AwayScore, &m.WinnerTeamID,
		&m.RoundNumber, &m.RoundLabel, &m.IsElimination, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE competition_id = $1`)
	args := []interface{}{competitionID}

	if round != nil {
		queryBuilder.WriteString(" AND round_number = $" + strconv.Itoa(len(args)+1))
		args = append(args, *round)
	}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY round_number ASC, id ASC")

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountUnresolvedInRound(ctx context.Context, exec SQLExecutor, competitionID, round int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE competition_id = $1 AND round_number = $2 AND status IN ($3, $4)`,
		competitionID, round, models.MatchStatusScheduled, models.MatchStatusOngoing,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE competition_id = $1`, competitionID,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, homeScore, awayScore int, winnerTeamID *int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE matches
		SET home_score = $1, away_score = $2, winner_team_id = $3, status = $4
		WHERE id = $5`,
		homeScore, awayScore, winnerTeamID, status, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" { // foreign_key_violation
			switch pqErr.Constraint {
			case "matches_competition_id_fkey":
				return ErrMatchCompetitionInvalid
			case "matches_home_team_id_fkey", "matches_away_team_id_fkey", "matches_winner_team_id_fkey":
				return ErrMatchTeamInvalid
			}
		}
	}
	return err
}
