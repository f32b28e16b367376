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

// LedgerStore is the dedup ledger over processed source URLs. The composite
// primary key plus the conditional insert make Commit the system's single
// mutual-exclusion point: overlapping triggers racing on the same URL resolve
// to exactly one winner.
type LedgerStore struct {
	db *sqlx.DB
}

var _ ports.Ledger = (*LedgerStore)(nil)

// NewLedgerStore wires the store.
func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// IsPosted answers "already processed?" for one (source, url).
func (s *LedgerStore) IsPosted(ctx context.Context, source, url string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("posted_links").
		Where(sq.Eq{"source": source, "url": url}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build ledger query: %w", err)
	}

	var one int
	err = s.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// Commit records one processed URL. The losing side of a race gets
// ErrDuplicate instead of a row.
func (s *LedgerStore) Commit(ctx context.Context, source, url, title string) (*domain.PostedLink, error) {
	const query = `
		INSERT INTO posted_links (source, url, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (source, url) DO NOTHING
		RETURNING posted_at`

	var postedAt time.Time
	err := s.db.QueryRowContext(ctx, query, source, url, title).Scan(&postedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("commit ledger: %w", err)
	}

	return &domain.PostedLink{
		Source:   source,
		URL:      url,
		Title:    title,
		PostedAt: postedAt,
	}, nil
}
