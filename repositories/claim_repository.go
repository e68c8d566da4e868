package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenapool/wager-system/models"
	"github.com/lib/pq"
)

var ErrClaimConflict = errors.New("payout already claimed for this tournament")

type ClaimRepository interface {
	// Create фиксирует выплату. Повторная вставка по тому же ключу
	// возвращает ErrClaimConflict - защита "не более одной выплаты"
	// работает и на уровне БД.
	Create(ctx context.Context, exec SQLExecutor, claim *models.Claim) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Claim, error)
	HasClaimed(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (bool, error)
}

type postgresClaimRepository struct {
	db *sql.DB
}

func NewPostgresClaimRepository(db *sql.DB) ClaimRepository {
	return &postgresClaimRepository{db: db}
}

func (r *postgresClaimRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresClaimRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Claim) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO claims (tournament_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING claimed_at`

	err := executor.QueryRowContext(ctx, query, c.TournamentID, c.UserID, c.Amount).Scan(&c.ClaimedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrClaimConflict
		}
		return fmt.Errorf("failed to insert claim (%d/%d): %w", c.TournamentID, c.UserID, err)
	}
	return nil
}

func (r *postgresClaimRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Claim, error) {
	executor := r.getExecutor(exec)
	query := `SELECT tournament_id, user_id, amount, claimed_at FROM claims WHERE tournament_id = $1 AND user_id = $2`

	c := &models.Claim{}
	err := executor.QueryRowContext(ctx, query, tournamentID, userID).Scan(&c.TournamentID, &c.UserID, &c.Amount, &c.ClaimedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresClaimRepository) HasClaimed(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS(SELECT 1 FROM claims WHERE tournament_id = $1 AND user_id = $2)`

	var claimed bool
	if err := executor.QueryRowContext(ctx, query, tournamentID, userID).Scan(&claimed); err != nil {
		return false, err
	}
	return claimed, nil
}
