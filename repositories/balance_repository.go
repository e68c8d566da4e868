package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// BalanceRepository - примитив перевода ценности: балансы пользователей
// в минимальных единицах. Debit и Credit вызываются внутри транзакций
// ставок, расчётов и выплат; встречная операция той же транзакции
// сохраняет сумму средств в системе.
type BalanceRepository interface {
	Credit(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	Debit(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	GetBalance(ctx context.Context, userID int) (int64, error)
}

type postgresBalanceRepository struct {
	db *sql.DB
}

func NewPostgresBalanceRepository(db *sql.DB) BalanceRepository {
	return &postgresBalanceRepository{db: db}
}

func (r *postgresBalanceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBalanceRepository) Credit(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE users SET balance = balance + $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresBalanceRepository) Debit(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	executor := r.getExecutor(exec)
	// Списание только при достаточном балансе; 0 затронутых строк
	// означает либо нехватку средств, либо отсутствие пользователя.
	query := `UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1`
	result, err := executor.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrInsufficientFunds)
}

func (r *postgresBalanceRepository) GetBalance(ctx context.Context, userID int) (int64, error) {
	query := `SELECT balance FROM users WHERE id = $1`

	var balance int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}
