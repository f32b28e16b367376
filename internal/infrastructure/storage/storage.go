// Package storage implements the persistence ports on Postgres using sqlx
// with squirrel-built queries.
package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrNotFound signals a missing row for a required entity.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate signals a losing ledger commit; callers treat it as
	// "already processed, skip", never as a failure.
	ErrDuplicate = errors.New("already recorded")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects and verifies the database.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS posted_links (
	source     TEXT NOT NULL,
	url        TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	posted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (source, url)
);

CREATE TABLE IF NOT EXISTS news_cards (
	id          UUID PRIMARY KEY,
	image       BYTEA,
	status      TEXT NOT NULL,
	source_data JSONB NOT NULL,
	template_id TEXT NOT NULL,
	mapping_id  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS posts (
	id               UUID PRIMARY KEY,
	news_card_id     UUID NOT NULL REFERENCES news_cards (id),
	account_id       TEXT NOT NULL,
	content          TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	scheduled_for    TIMESTAMPTZ,
	platform_post_id TEXT NOT NULL DEFAULT '',
	platform_url     TEXT NOT NULL DEFAULT '',
	error_message    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_due ON posts (scheduled_for) WHERE status = 'QUEUED';

CREATE TABLE IF NOT EXISTS autopilot_settings (
	user_id                TEXT PRIMARY KEY,
	enabled                BOOLEAN NOT NULL DEFAULT FALSE,
	source                 TEXT NOT NULL DEFAULT '',
	template_id            TEXT NOT NULL DEFAULT '',
	sensitive_mode         TEXT NOT NULL DEFAULT 'off',
	check_interval_seconds BIGINT NOT NULL DEFAULT 3600,
	last_run_at            TIMESTAMPTZ,
	last_error             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS autopilot_runs (
	id            UUID PRIMARY KEY,
	user_id       TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ,
	news_found    INT NOT NULL DEFAULT 0,
	cards_created INT NOT NULL DEFAULT 0,
	skipped       INT NOT NULL DEFAULT 0,
	errors        INT NOT NULL DEFAULT 0,
	last_error    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	definition JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS mappings (
	id            TEXT PRIMARY KEY,
	source_id     TEXT NOT NULL,
	template_id   TEXT NOT NULL,
	fields        JSONB NOT NULL DEFAULT '{}',
	caption_field TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS social_accounts (
	id           TEXT PRIMARY KEY,
	platform_id  TEXT NOT NULL,
	access_token TEXT NOT NULL
);
`

// Migrate applies the idempotent schema bootstrap.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
