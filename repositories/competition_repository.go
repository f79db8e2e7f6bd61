package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/match-developers/matchplay/models"
)

var (
	ErrCompetitionNotFound         = errors.New("competition not found")
	ErrCompetitionOrganizerInvalid = errors.New("competition organizer conflict or invalid")
	ErrTeamAlreadyEnrolled         = errors.New("team already enrolled in this competition")
)

type CompetitionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, c *models.Competition) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error)
	// GetByIDForUpdate loads the competition under a row lock. It is the
	// per-competition mutual-exclusion boundary for round advancement and
	// one-shot schedule generation; callers must pass a *sql.Tx.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error)
	List(ctx context.Context, exec SQLExecutor, status *models.CompetitionStatus, limit, offset int) ([]*models.Competition, error)
	ListDueForStart(ctx context.Context, exec SQLExecutor, policy models.SchedulingPolicy, now time.Time) ([]*models.Competition, error)
	UpdateProgress(ctx context.Context, exec SQLExecutor, id, currentRound int, status models.CompetitionStatus) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.CompetitionStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	EnrollTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID, position int) error
	CountEnrolled(ctx context.Context, exec SQLExecutor, competitionID int) (int, error)
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const competitionColumns = `
	id, organizer_id, name, description, kind, participant_mode, total_rounds,
	current_round, start_date, deadline, capacity, scheduling_policy, status,
	match_duration_minutes, winning_method_id, created_at`

func (r *postgresCompetitionRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Competition) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO competitions
			(organizer_id, name, description, kind, participant_mode, total_rounds,
			 current_round, start_date, deadline, capacity, scheduling_policy, status,
			 match_duration_minutes, winning_method_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		c.OrganizerID, c.Name, c.Description, c.Kind, c.ParticipantMode, c.TotalRounds,
		c.CurrentRound, c.StartDate, c.Deadline, c.Capacity, c.SchedulingPolicy, c.Status,
		c.MatchDurationMin, c.WinningMethodID,
	).Scan(&c.ID, &c.CreatedAt)

	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) scanCompetition(rowScanner interface{ Scan(...interface{}) error }) (*models.Competition, error) {
	var c models.Competition
	err := rowScanner.Scan(
		&c.ID, &c.OrganizerID, &c.Name, &c.Description, &c.Kind, &c.ParticipantMode,
		&c.TotalRounds, &c.CurrentRound, &c.StartDate, &c.Deadline, &c.Capacity,
		&c.SchedulingPolicy, &c.Status, &c.MatchDurationMin, &c.WinningMethodID, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE id = $1`
	return r.scanCompetition(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresCompetitionRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Competition, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE id = $1 FOR UPDATE`
	return r.scanCompetition(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresCompetitionRepository) List(ctx context.Context, exec SQLExecutor, status *models.CompetitionStatus, limit, offset int) ([]*models.Competition, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + competitionColumns + ` FROM competitions`)
	args := make([]interface{}, 0, 3)
	if status != nil {
		queryBuilder.WriteString(" WHERE status = $1")
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY start_date DESC, id DESC")
	queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(len(args)+1))
	args = append(args, limit)
	queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(len(args)+1))
	args = append(args, offset)

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresCompetitionRepository) ListDueForStart(ctx context.Context, exec SQLExecutor, policy models.SchedulingPolicy, now time.Time) ([]*models.Competition, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + competitionColumns + `
		FROM competitions
		WHERE scheduling_policy = $1 AND status = $2 AND deadline <= $3
		ORDER BY deadline ASC`

	rows, err := executor.QueryContext(ctx, query, policy, models.CompetitionRegistration, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *postgresCompetitionRepository) collect(rows *sql.Rows) ([]*models.Competition, error) {
	competitions := make([]*models.Competition, 0)
	for rows.Next() {
		c, err := r.scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		competitions = append(competitions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, id, currentRound int, status models.CompetitionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE competitions SET current_round = $1, status = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, currentRound, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.CompetitionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE competitions SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	// Matches and standings cascade in the schema; the competition owns them.
	result, err := executor.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) EnrollTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID, position int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO competition_teams (competition_id, team_id, position)
		VALUES ($1, $2, $3)`
	_, err := executor.ExecContext(ctx, query, competitionID, teamID, position)
	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) CountEnrolled(ctx context.Context, exec SQLExecutor, competitionID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM competition_teams WHERE competition_id = $1`, competitionID,
	).Scan(&count)
	return count, err
}

func (r *postgresCompetitionRepository) handleCompetitionError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "competition_teams_pkey" {
				return ErrTeamAlreadyEnrolled
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "competitions_organizer_id_fkey":
				return ErrCompetitionOrganizerInvalid
			case "competition_teams_competition_id_fkey":
				return ErrCompetitionNotFound
			}
		}
	}
	return err
}
