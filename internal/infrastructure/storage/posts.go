package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// PostStore persists publish attempts. Terminal transitions are conditional
// on the row still being QUEUED, so a post transitions at most once and a
// FAILED row is never picked up again.
type PostStore struct {
	db *sqlx.DB
}

var _ ports.PostStore = (*PostStore)(nil)

// NewPostStore wires the store.
func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts one post.
func (s *PostStore) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql.
		Insert("posts").
		Columns("id", "news_card_id", "account_id", "content", "status",
			"scheduled_for", "platform_post_id", "platform_url", "error_message", "created_at").
		Values(post.ID, post.NewsCardID, post.AccountID, post.Content, string(post.Status),
			post.ScheduledFor, post.PlatformPostID, post.PlatformURL, post.ErrorMessage, post.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build post insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// DueQueued selects up to limit queued posts whose schedule has elapsed,
// oldest due first.
func (s *PostStore) DueQueued(ctx context.Context, now time.Time, limit int) ([]domain.Post, error) {
	query, args, err := psql.
		Select("id", "news_card_id", "account_id", "content", "status",
			"scheduled_for", "platform_post_id", "platform_url", "error_message", "created_at").
		From("posts").
		Where(sq.Eq{"status": string(domain.PostQueued)}).
		Where(sq.LtOrEq{"scheduled_for": now}).
		OrderBy("scheduled_for ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due query: %w", err)
	}

	var posts []domain.Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("query due posts: %w", err)
	}
	return posts, nil
}

// MarkPosted records a successful publish. Returns false when the row was no
// longer QUEUED, i.e. another sweep got there first.
func (s *PostStore) MarkPosted(ctx context.Context, id, platformPostID, platformURL string) (bool, error) {
	return s.transition(ctx, id, domain.PostPosted, map[string]any{
		"platform_post_id": platformPostID,
		"platform_url":     platformURL,
		"error_message":    "",
	})
}

// MarkFailed records a terminal publish failure with its message.
func (s *PostStore) MarkFailed(ctx context.Context, id, message string) (bool, error) {
	return s.transition(ctx, id, domain.PostFailed, map[string]any{
		"error_message": message,
	})
}

func (s *PostStore) transition(ctx context.Context, id string, to domain.PostStatus, extra map[string]any) (bool, error) {
	builder := psql.
		Update("posts").
		Set("status", string(to)).
		Where(sq.Eq{"id": id, "status": string(domain.PostQueued)})
	for column, value := range extra {
		builder = builder.Set(column, value)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("build post transition: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition post: %w", err)
	}
	return affected == 1, nil
}
