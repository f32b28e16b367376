package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// The stores below read entities owned by external collaborators (the
// template editor, the account manager); this module never writes them.

// TemplateStore reads stored template definitions.
type TemplateStore struct {
	db *sqlx.DB
}

var _ ports.TemplateStore = (*TemplateStore)(nil)

// NewTemplateStore wires the store.
func NewTemplateStore(db *sqlx.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get loads and decodes one template, validating it once at load time.
func (s *TemplateStore) Get(ctx context.Context, id string) (*domain.Template, error) {
	query, args, err := psql.
		Select("definition").
		From("templates").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build template query: %w", err)
	}

	var definition []byte
	err = s.db.GetContext(ctx, &definition, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}

	tmpl, err := domain.DecodeTemplate(definition)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	if tmpl.ID == "" {
		tmpl.ID = id
	}
	return &tmpl, nil
}

// MappingStore looks up field mappings.
type MappingStore struct {
	db *sqlx.DB
}

var _ ports.MappingStore = (*MappingStore)(nil)

// NewMappingStore wires the store.
func NewMappingStore(db *sqlx.DB) *MappingStore {
	return &MappingStore{db: db}
}

// Find returns the mapping for a (source, template) pair, or (nil, nil) when
// none is configured; callers fall back to the identity mapping.
func (s *MappingStore) Find(ctx context.Context, sourceID, templateID string) (*domain.Mapping, error) {
	query, args, err := psql.
		Select("id", "source_id", "template_id", "fields", "caption_field").
		From("mappings").
		Where(sq.Eq{"source_id": sourceID, "template_id": templateID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build mapping query: %w", err)
	}

	var row struct {
		ID           string `db:"id"`
		SourceID     string `db:"source_id"`
		TemplateID   string `db:"template_id"`
		Fields       []byte `db:"fields"`
		CaptionField string `db:"caption_field"`
	}
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mapping: %w", err)
	}

	m := &domain.Mapping{
		ID:           row.ID,
		SourceID:     row.SourceID,
		TemplateID:   row.TemplateID,
		CaptionField: row.CaptionField,
	}
	if err := json.Unmarshal(row.Fields, &m.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal mapping fields: %w", err)
	}
	return m, nil
}

// AccountStore reads social account credentials.
type AccountStore struct {
	db *sqlx.DB
}

var _ ports.AccountStore = (*AccountStore)(nil)

// NewAccountStore wires the store.
func NewAccountStore(db *sqlx.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Get loads one account.
func (s *AccountStore) Get(ctx context.Context, id string) (*domain.SocialAccount, error) {
	query, args, err := psql.
		Select("id", "platform_id", "access_token").
		From("social_accounts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account query: %w", err)
	}

	var account domain.SocialAccount
	err = s.db.GetContext(ctx, &account, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &account, nil
}
