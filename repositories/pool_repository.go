package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenapool/wager-system/models"
)

type PoolRepository interface {
	// AddStake увеличивает пул участника; запись создаётся при первой ставке.
	AddStake(ctx context.Context, exec SQLExecutor, tournamentID, entrantID int, amount int64) error
	GetStake(ctx context.Context, exec SQLExecutor, tournamentID, entrantID int) (int64, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.EntrantPool, error)
}

type postgresPoolRepository struct {
	db *sql.DB
}

func NewPostgresPoolRepository(db *sql.DB) PoolRepository {
	return &postgresPoolRepository{db: db}
}

func (r *postgresPoolRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPoolRepository) AddStake(ctx context.Context, exec SQLExecutor, tournamentID, entrantID int, amount int64) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO entrant_pools (tournament_id, entrant_id, staked_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, entrant_id)
		DO UPDATE SET staked_total = entrant_pools.staked_total + EXCLUDED.staked_total`

	if _, err := executor.ExecContext(ctx, query, tournamentID, entrantID, amount); err != nil {
		return fmt.Errorf("failed to add stake to entrant pool (%d/%d): %w", tournamentID, entrantID, err)
	}
	return nil
}

func (r *postgresPoolRepository) GetStake(ctx context.Context, exec SQLExecutor, tournamentID, entrantID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `SELECT staked_total FROM entrant_pools WHERE tournament_id = $1 AND entrant_id = $2`

	var total int64
	err := executor.QueryRowContext(ctx, query, tournamentID, entrantID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Никто не ставил на этого участника.
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}

func (r *postgresPoolRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.EntrantPool, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT tournament_id, entrant_id, staked_total
		FROM entrant_pools
		WHERE tournament_id = $1
		ORDER BY entrant_id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]models.EntrantPool, 0)
	for rows.Next() {
		var p models.EntrantPool
		if scanErr := rows.Scan(&p.TournamentID, &p.EntrantID, &p.StakedTotal); scanErr != nil {
			return nil, scanErr
		}
		pools = append(pools, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}
