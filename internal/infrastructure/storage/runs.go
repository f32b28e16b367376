package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// RunStore persists autopilot run bookkeeping. Rows are append-only history:
// Complete is the single mutation, and only while completed_at is unset.
type RunStore struct {
	db *sqlx.DB
}

var _ ports.RunStore = (*RunStore)(nil)

// NewRunStore wires the store.
func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts the run row at cycle start.
func (s *RunStore) Create(ctx context.Context, run *domain.AutopilotRun) error {
	query, args, err := psql.
		Insert("autopilot_runs").
		Columns("id", "user_id", "status", "started_at").
		Values(run.ID, run.UserID, string(run.Status), run.StartedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Complete seals the run with its final counters.
func (s *RunStore) Complete(ctx context.Context, run *domain.AutopilotRun) error {
	query, args, err := psql.
		Update("autopilot_runs").
		Set("status", string(run.Status)).
		Set("completed_at", run.CompletedAt).
		Set("news_found", run.NewsFound).
		Set("cards_created", run.CardsCreated).
		Set("skipped", run.Skipped).
		Set("errors", run.Errors).
		Set("last_error", run.LastError).
		Where(sq.Eq{"id": run.ID}).
		Where("completed_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build run update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}
