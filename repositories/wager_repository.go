package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenapool/wager-system/models"
)

type WagerRepository interface {
	// AddStake накапливает ставку пользователя на участника; повторные
	// ставки на тот же ключ суммируются, отдельных записей не создаётся.
	AddStake(ctx context.Context, exec SQLExecutor, tournamentID, userID, entrantID int, amount int64) error
	GetStake(ctx context.Context, exec SQLExecutor, tournamentID, userID, entrantID int) (int64, error)
	// SumByUser возвращает сумму всех ставок пользователя в турнире
	// (для возврата средств при отмене).
	SumByUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (int64, error)
	ListByUser(ctx context.Context, tournamentID, userID int) ([]models.Wager, error)
}

type postgresWagerRepository struct {
	db *sql.DB
}

func NewPostgresWagerRepository(db *sql.DB) WagerRepository {
	return &postgresWagerRepository{db: db}
}

func (r *postgresWagerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWagerRepository) AddStake(ctx context.Context, exec SQLExecutor, tournamentID, userID, entrantID int, amount int64) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO wagers (tournament_id, user_id, entrant_id, staked)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tournament_id, user_id, entrant_id)
		DO UPDATE SET staked = wagers.staked + EXCLUDED.staked`

	if _, err := executor.ExecContext(ctx, query, tournamentID, userID, entrantID, amount); err != nil {
		return fmt.Errorf("failed to add wager stake (%d/%d/%d): %w", tournamentID, userID, entrantID, err)
	}
	return nil
}

func (r *postgresWagerRepository) GetStake(ctx context.Context, exec SQLExecutor, tournamentID, userID, entrantID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `SELECT staked FROM wagers WHERE tournament_id = $1 AND user_id = $2 AND entrant_id = $3`

	var staked int64
	err := executor.QueryRowContext(ctx, query, tournamentID, userID, entrantID).Scan(&staked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return staked, nil
}

func (r *postgresWagerRepository) SumByUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COALESCE(SUM(staked), 0) FROM wagers WHERE tournament_id = $1 AND user_id = $2`

	var total int64
	if err := executor.QueryRowContext(ctx, query, tournamentID, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *postgresWagerRepository) ListByUser(ctx context.Context, tournamentID, userID int) ([]models.Wager, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT tournament_id, user_id, entrant_id, staked
		FROM wagers
		WHERE tournament_id = $1 AND user_id = $2
		ORDER BY entrant_id`

	rows, err := executor.QueryContext(ctx, query, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wagers := make([]models.Wager, 0)
	for rows.Next() {
		var w models.Wager
		if scanErr := rows.Scan(&w.TournamentID, &w.UserID, &w.EntrantID, &w.Staked); scanErr != nil {
			return nil, scanErr
		}
		wagers = append(wagers, w)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return wagers, nil
}
