package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsRepository хранит глобальные настройки леджера в единственной
// строке (id = 1). Пока получатель комиссии не назначен, строки нет и
// GetFeeRecipient возвращает 0.
type SettingsRepository interface {
	GetFeeRecipient(ctx context.Context, exec SQLExecutor) (int, error)
	SetFeeRecipient(ctx context.Context, exec SQLExecutor, userID int) error
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSettingsRepository) GetFeeRecipient(ctx context.Context, exec SQLExecutor) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT fee_recipient_id FROM ledger_settings WHERE id = 1`

	var recipientID int
	err := executor.QueryRowContext(ctx, query).Scan(&recipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return recipientID, nil
}

func (r *postgresSettingsRepository) SetFeeRecipient(ctx context.Context, exec SQLExecutor, userID int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO ledger_settings (id, fee_recipient_id)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET fee_recipient_id = EXCLUDED.fee_recipient_id`

	if _, err := executor.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to set fee recipient: %w", err)
	}
	return nil
}
