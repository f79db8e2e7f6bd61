package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/match-developers/matchplay/models"
)

var ErrWinningMethodNotFound = errors.New("winning method not found")

type WinningMethodRepository interface {
	Create(ctx context.Context, exec SQLExecutor, method *models.WinningMethod) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.WinningMethod, error)
}

type postgresWinningMethodRepository struct {
	db *sql.DB
}

func NewPostgresWinningMethodRepository(db *sql.DB) WinningMethodRepository {
	return &postgresWinningMethodRepository{db: db}
}

func (r *postgresWinningMethodRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWinningMethodRepository) Create(ctx context.Context, exec SQLExecutor, method *models.WinningMethod) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO winning_methods (name, points_needed, sets, allows_draw, additional_rules)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		method.Name, method.PointsNeeded, method.Sets, method.AllowsDraw, method.AdditionalRules,
	).Scan(&method.ID)
}

func (r *postgresWinningMethodRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.WinningMethod, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, points_needed, sets, allows_draw, additional_rules FROM winning_methods WHERE id = $1`

	method := &models.WinningMethod{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&method.ID, &method.Name, &method.PointsNeeded, &method.Sets,
		&method.AllowsDraw, &method.AdditionalRules,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWinningMethodNotFound
		}
		return nil, err
	}
	return method, nil
}
