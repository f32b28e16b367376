package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// CardStore persists rendered cards with their frozen article snapshots.
type CardStore struct {
	db *sqlx.DB
}

var _ ports.CardStore = (*CardStore)(nil)

// NewCardStore wires the store.
func NewCardStore(db *sqlx.DB) *CardStore {
	return &CardStore{db: db}
}

// Create inserts one card.
func (s *CardStore) Create(ctx context.Context, card *domain.NewsCard) error {
	snapshot, err := json.Marshal(card.SourceData)
	if err != nil {
		return fmt.Errorf("marshal source snapshot: %w", err)
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql.
		Insert("news_cards").
		Columns("id", "image", "status", "source_data", "template_id", "mapping_id", "created_at").
		Values(card.ID, card.Image, string(card.Status), snapshot, card.TemplateID, card.MappingID, card.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build card insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// Get loads one card including its image bytes.
func (s *CardStore) Get(ctx context.Context, id string) (*domain.NewsCard, error) {
	query, args, err := psql.
		Select("id", "image", "status", "source_data", "template_id", "mapping_id", "created_at").
		From("news_cards").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card query: %w", err)
	}

	var row struct {
		ID         string         `db:"id"`
		Image      []byte         `db:"image"`
		Status     string         `db:"status"`
		SourceData []byte         `db:"source_data"`
		TemplateID string         `db:"template_id"`
		MappingID  string         `db:"mapping_id"`
		CreatedAt  time.Time      `db:"created_at"`
	}
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query card: %w", err)
	}

	card := &domain.NewsCard{
		ID:         row.ID,
		Image:      row.Image,
		Status:     domain.CardStatus(row.Status),
		TemplateID: row.TemplateID,
		MappingID:  row.MappingID,
		CreatedAt:  row.CreatedAt,
	}
	if err := json.Unmarshal(row.SourceData, &card.SourceData); err != nil {
		return nil, fmt.Errorf("unmarshal source snapshot: %w", err)
	}
	return card, nil
}

// UpdateStatus applies one forward transition. The predicate on the current
// status keeps the state machine one-directional even under concurrent
// writers; an invalid transition is rejected before touching the database.
func (s *CardStore) UpdateStatus(ctx context.Context, id string, from, to domain.CardStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("card %s: transition %s -> %s is not allowed", id, from, to)
	}

	query, args, err := psql.
		Update("news_cards").
		Set("status", string(to)).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("card %s: %w or already past %s", id, ErrNotFound, from)
	}
	return nil
}
