package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// SettingsStore persists per-user autopilot configuration. The persisted row
// is authoritative; nothing in-process outlives it.
type SettingsStore struct {
	db *sqlx.DB
}

var _ ports.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore wires the store.
func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

type settingsRow struct {
	UserID        string     `db:"user_id"`
	Enabled       bool       `db:"enabled"`
	Source        string     `db:"source"`
	TemplateID    string     `db:"template_id"`
	SensitiveMode string     `db:"sensitive_mode"`
	IntervalSecs  int64      `db:"check_interval_seconds"`
	LastRunAt     *time.Time `db:"last_run_at"`
	LastError     string     `db:"last_error"`
}

// Get loads one user's settings.
func (s *SettingsStore) Get(ctx context.Context, userID string) (*domain.AutopilotSettings, error) {
	query, args, err := psql.
		Select("user_id", "enabled", "source", "template_id", "sensitive_mode",
			"check_interval_seconds", "last_run_at", "last_error").
		From("autopilot_settings").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build settings query: %w", err)
	}

	var row settingsRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}

	return &domain.AutopilotSettings{
		UserID:        row.UserID,
		Enabled:       row.Enabled,
		Source:        row.Source,
		TemplateID:    row.TemplateID,
		SensitiveMode: domain.SensitiveMode(row.SensitiveMode),
		CheckInterval: time.Duration(row.IntervalSecs) * time.Second,
		LastRunAt:     row.LastRunAt,
		LastError:     row.LastError,
	}, nil
}

// SetEnabled flips the authoritative autopilot switch.
func (s *SettingsStore) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	query, args, err := psql.
		Update("autopilot_settings").
		Set("enabled", enabled).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build enable update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enabled: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TryBeginRun is the concurrency gate for a cycle: it advances last_run_at
// only when the autopilot is enabled and due, in a single conditional update.
// Of several overlapping triggers (manual run, cron sweep, interval loop)
// exactly one sees a row count of 1 and proceeds.
func (s *SettingsStore) TryBeginRun(ctx context.Context, userID string, now time.Time) (bool, error) {
	const query = `
		UPDATE autopilot_settings
		SET last_run_at = $2
		WHERE user_id = $1
		  AND enabled
		  AND (last_run_at IS NULL
		       OR last_run_at <= $2 - (check_interval_seconds * INTERVAL '1 second'))`

	result, err := s.db.ExecContext(ctx, query, userID, now)
	if err != nil {
		return false, fmt.Errorf("begin run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("begin run: %w", err)
	}
	return affected == 1, nil
}

// RecordError stores the most recent error string for the settings surface.
func (s *SettingsStore) RecordError(ctx context.Context, userID, message string) error {
	query, args, err := psql.
		Update("autopilot_settings").
		Set("last_error", message).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build error update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}
