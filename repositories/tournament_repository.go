package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenapool/wager-system/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
)

type ListTournamentsFilter struct {
	Active  *bool
	Settled *bool
	Limit   int
	Offset  int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// LockByID reads the tournament row FOR UPDATE. Must be called inside a
	// transaction: the row lock serializes all mutating operations on one
	// tournament.
	LockByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Close(ctx context.Context, exec SQLExecutor, id int) error
	MarkSettled(ctx context.Context, exec SQLExecutor, id int, winningEntrant int) error
	AddToPool(ctx context.Context, exec SQLExecutor, id int, amount int64) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (name, entrant_count, active, settled, winning_entrant, total_pool)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.EntrantCount, t.Active, t.Settled, t.WinningEntrant, t.TotalPool,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

const tournamentColumns = `id, name, entrant_count, active, settled, winning_entrant, total_pool, created_at`

func scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.EntrantCount, &t.Active, &t.Settled,
		&t.WinningEntrant, &t.TotalPool, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) LockByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", argID)
		args = append(args, *filter.Active)
		argID++
	}
	if filter.Settled != nil {
		query += fmt.Sprintf(" AND settled = $%d", argID)
		args = append(args, *filter.Settled)
		argID++
	}

	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.EntrantCount, &t.Active, &t.Settled,
			&t.WinningEntrant, &t.TotalPool, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Close(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET active = FALSE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to close tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkSettled(ctx context.Context, exec SQLExecutor, id int, winningEntrant int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET active = FALSE, settled = TRUE, winning_entrant = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winningEntrant, id)
	if err != nil {
		return fmt.Errorf("failed to mark tournament %d settled: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) AddToPool(ctx context.Context, exec SQLExecutor, id int, amount int64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET total_pool = total_pool + $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to grow tournament %d pool: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
