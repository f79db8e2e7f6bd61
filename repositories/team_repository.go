package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/match-developers/matchplay/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	// ListByCompetition returns the enrolled teams in enrollment order.
	// The order seeds fixture rotation, so it must be stable.
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO teams (name, club_id, member_ids)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		team.Name, team.ClubID, pq.Array(team.MemberIDs),
	).Scan(&team.ID, &team.CreatedAt)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, club_id, member_ids, created_at FROM teams WHERE id = $1`

	team := &models.Team{}
	var members pq.Int64Array
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.ClubID, &members, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	team.MemberIDs = members
	return team, nil
}

func (r *postgresTeamRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT t.id, t.name, t.club_id, t.member_ids, t.created_at
		FROM teams t
		JOIN competition_teams ct ON ct.team_id = t.id
		WHERE ct.competition_id = $1
		ORDER BY ct.position ASC`

	rows, err := executor.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		var members pq.Int64Array
		if err := rows.Scan(&team.ID, &team.Name, &team.ClubID, &members, &team.CreatedAt); err != nil {
			return nil, err
		}
		team.MemberIDs = members
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}
