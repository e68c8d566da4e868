package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Схема хранилища пулов ставок. Все денежные суммы - в минорных единицах (int64).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'participant',
		balance       BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id              SERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		entrant_count   INT NOT NULL,
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		settled         BOOLEAN NOT NULL DEFAULT FALSE,
		winning_entrant INT NOT NULL DEFAULT 0,
		total_pool      BIGINT NOT NULL DEFAULT 0 CHECK (total_pool >= 0),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS entrant_pools (
		tournament_id INT NOT NULL REFERENCES tournaments(id),
		entrant_id    INT NOT NULL,
		staked_total  BIGINT NOT NULL DEFAULT 0 CHECK (staked_total >= 0),
		PRIMARY KEY (tournament_id, entrant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS wagers (
		tournament_id INT NOT NULL REFERENCES tournaments(id),
		user_id       INT NOT NULL REFERENCES users(id),
		entrant_id    INT NOT NULL,
		staked        BIGINT NOT NULL DEFAULT 0 CHECK (staked >= 0),
		PRIMARY KEY (tournament_id, user_id, entrant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS claims (
		tournament_id INT NOT NULL REFERENCES tournaments(id),
		user_id       INT NOT NULL REFERENCES users(id),
		amount        BIGINT NOT NULL CHECK (amount > 0),
		claimed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (tournament_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_settings (
		id               INT PRIMARY KEY CHECK (id = 1),
		fee_recipient_id INT NOT NULL REFERENCES users(id)
	)`,
}

// EnsureSchema создаёт недостающие таблицы. Выполняется при старте приложения.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
