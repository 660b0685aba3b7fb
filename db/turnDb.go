package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaibhav23244/multi-agent-backend/models"

	_ "github.com/lib/pq"
)

type TurnRepository interface {
	SaveTurn(ctx context.Context, turn *models.Turn) error
}

type PostgresTurnRepository struct {
	db *sql.DB
}

func NewPostgresTurnRepository(databaseURL string) (*PostgresTurnRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &PostgresTurnRepository{db: db}
	if err := repo.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresTurnRepository) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS turns (
			id UUID PRIMARY KEY,
			message TEXT NOT NULL,
			answer TEXT NOT NULL,
			status BOOLEAN NOT NULL,
			tool_calls INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create turns table: %w", err)
	}
	return nil
}

// SaveTurn inserts the turn and fills in CreatedAt from the database.
func (r *PostgresTurnRepository) SaveTurn(ctx context.Context, turn *models.Turn) error {
	query := `
		INSERT INTO turns (id, message, answer, status, tool_calls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	row := r.db.QueryRowContext(ctx, query, turn.ID, turn.Message, turn.Answer, turn.Status, turn.ToolCalls)
	if err := row.Scan(&turn.CreatedAt); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

func (r *PostgresTurnRepository) Close() error {
	return r.db.Close()
}
