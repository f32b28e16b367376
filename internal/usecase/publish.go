package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// PostResult is the per-post outcome of one sweep pass.
type PostResult struct {
	PostID      string `json:"postId"`
	Success     bool   `json:"success"`
	PlatformURL string `json:"platformUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Publisher moves cards onto social accounts, immediately or on schedule.
// Delivery is at-least-once: the API call happens first and the terminal
// status is recorded after, conditionally on the row still being QUEUED.
type Publisher struct {
	cards     ports.CardStore
	posts     ports.PostStore
	accounts  ports.AccountStore
	social    ports.SocialPublisher
	batchSize int
	logger    *slog.Logger
}

// NewPublisher wires the orchestrator.
func NewPublisher(
	cards ports.CardStore,
	posts ports.PostStore,
	accounts ports.AccountStore,
	social ports.SocialPublisher,
	batchSize int,
	logger *slog.Logger,
) *Publisher {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Publisher{
		cards:     cards,
		posts:     posts,
		accounts:  accounts,
		social:    social,
		batchSize: batchSize,
		logger:    logger.With("component", "publisher"),
	}
}

// PublishNow publishes a card immediately, bypassing the queue. The post row
// records the outcome either way; on failure the card keeps its current
// status so the user can retry.
func (p *Publisher) PublishNow(ctx context.Context, cardID, accountID, caption string) (*domain.Post, error) {
	card, err := p.cards.Get(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if !domain.CanTransition(card.Status, domain.CardPosted) {
		return nil, fmt.Errorf("card %s is %s and cannot be published", cardID, card.Status)
	}
	account, err := p.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	post := &domain.Post{
		ID:         uuid.NewString(),
		NewsCardID: card.ID,
		AccountID:  account.ID,
		Content:    caption,
		CreatedAt:  time.Now(),
	}

	published, err := p.social.Publish(ctx, ports.PublishRequest{
		PageID:      account.PlatformID,
		AccessToken: account.AccessToken,
		Caption:     caption,
		Image:       card.Image,
	})
	if err != nil {
		post.Status = domain.PostFailed
		post.ErrorMessage = err.Error()
		if storeErr := p.posts.Create(ctx, post); storeErr != nil {
			p.logger.Error("store failed post", "card", cardID, "error", storeErr)
		}
		return post, fmt.Errorf("publish card %s: %w", cardID, err)
	}

	post.Status = domain.PostPosted
	post.PlatformPostID = published.PostID
	post.PlatformURL = published.URL
	if err := p.posts.Create(ctx, post); err != nil {
		return post, fmt.Errorf("store post: %w", err)
	}
	if err := p.cards.UpdateStatus(ctx, cardID, card.Status, domain.CardPosted); err != nil {
		p.logger.Warn("card status update failed", "card", cardID, "error", err)
	}
	p.logger.Info("published", "card", cardID, "post", post.ID, "url", post.PlatformURL)
	return post, nil
}

// Schedule persists a queued publish for a later sweep. A past-due time is
// accepted as-is; the next sweep picks it up immediately.
func (p *Publisher) Schedule(ctx context.Context, cardID, accountID, caption string, at time.Time) (*domain.Post, error) {
	card, err := p.cards.Get(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if _, err := p.accounts.Get(ctx, accountID); err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	post := &domain.Post{
		ID:           uuid.NewString(),
		NewsCardID:   card.ID,
		AccountID:    accountID,
		Content:      caption,
		Status:       domain.PostQueued,
		ScheduledFor: &at,
		CreatedAt:    time.Now(),
	}
	if err := p.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("store post: %w", err)
	}

	if card.Status != domain.CardQueued && domain.CanTransition(card.Status, domain.CardQueued) {
		if err := p.cards.UpdateStatus(ctx, cardID, card.Status, domain.CardQueued); err != nil {
			p.logger.Warn("card status update failed", "card", cardID, "error", err)
		}
	}
	p.logger.Info("scheduled", "card", cardID, "post", post.ID, "at", at)
	return post, nil
}

// SweepDue processes every queued post whose scheduled time has passed. Posts
// fail and succeed independently; the conditional MarkPosted/MarkFailed is
// what guarantees a post transitions at most once even when two sweeps
// overlap.
func (p *Publisher) SweepDue(ctx context.Context, now time.Time) ([]PostResult, error) {
	due, err := p.posts.DueQueued(ctx, now, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("select due posts: %w", err)
	}

	results := make([]PostResult, 0, len(due))
	for _, post := range due {
		results = append(results, p.sweepOne(ctx, post))
	}
	if len(due) > 0 {
		p.logger.Info("sweep done", "processed", len(due))
	}
	return results, nil
}

func (p *Publisher) sweepOne(ctx context.Context, post domain.Post) PostResult {
	card, err := p.cards.Get(ctx, post.NewsCardID)
	if err != nil {
		return p.recordFailure(ctx, post, card, fmt.Errorf("load card: %w", err))
	}
	account, err := p.accounts.Get(ctx, post.AccountID)
	if err != nil {
		return p.recordFailure(ctx, post, card, fmt.Errorf("load account: %w", err))
	}

	published, err := p.social.Publish(ctx, ports.PublishRequest{
		PageID:      account.PlatformID,
		AccessToken: account.AccessToken,
		Caption:     post.Content,
		Image:       card.Image,
	})
	if err != nil {
		return p.recordFailure(ctx, post, card, err)
	}

	claimed, err := p.posts.MarkPosted(ctx, post.ID, published.PostID, published.URL)
	if err != nil {
		p.logger.Error("mark posted failed", "post", post.ID, "error", err)
		return PostResult{PostID: post.ID, Success: false, Error: err.Error()}
	}
	if !claimed {
		// Another sweep already settled this row; the publish above was a
		// duplicate delivery, which at-least-once accepts.
		return PostResult{PostID: post.ID, Success: true, PlatformURL: published.URL}
	}

	if err := p.cards.UpdateStatus(ctx, card.ID, card.Status, domain.CardPosted); err != nil {
		p.logger.Warn("card status update failed", "card", card.ID, "error", err)
	}
	return PostResult{PostID: post.ID, Success: true, PlatformURL: published.URL}
}

func (p *Publisher) recordFailure(ctx context.Context, post domain.Post, card *domain.NewsCard, cause error) PostResult {
	p.logger.Error("sweep publish failed", "post", post.ID, "error", cause)
	claimed, err := p.posts.MarkFailed(ctx, post.ID, cause.Error())
	if err != nil {
		p.logger.Error("mark failed failed", "post", post.ID, "error", err)
	}
	if claimed && card != nil && domain.CanTransition(card.Status, domain.CardFailed) {
		if err := p.cards.UpdateStatus(ctx, card.ID, card.Status, domain.CardFailed); err != nil {
			p.logger.Warn("card status update failed", "card", card.ID, "error", err)
		}
	}
	return PostResult{PostID: post.ID, Success: false, Error: cause.Error()}
}
