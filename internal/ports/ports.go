package ports

import (
	"context"
	"time"

	"CardForge/internal/domain"
)

// ArticleSource pulls the latest articles from one upstream outlet. Output
// order follows the listing page.
type ArticleSource interface {
	Name() string
	FetchLatest(ctx context.Context) ([]domain.Article, error)
}

// DetailFetcher extracts image, body, and metadata from one article page.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, pageURL string) (domain.ArticleDetail, error)
}

// PhotoFetcher downloads raw image bytes for compositing.
type PhotoFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// RenderAssets carries the pre-fetched image bytes a render needs. Any of the
// fields may be empty; the renderer degrades instead of failing.
type RenderAssets struct {
	Photo      []byte
	Background []byte
	Static     map[string][]byte
}

// Renderer rasterizes a template with substituted values into an encoded
// image buffer. Identical inputs must produce byte-identical output.
type Renderer interface {
	Render(tmpl domain.Template, values map[string]string, assets RenderAssets) ([]byte, error)
}

// Ledger is the dedup ledger over processed source URLs. Commit is the only
// operation in the system that needs an atomicity guarantee under
// concurrency: for a given (source, url) it succeeds at most once.
type Ledger interface {
	IsPosted(ctx context.Context, source, url string) (bool, error)
	Commit(ctx context.Context, source, url, title string) (*domain.PostedLink, error)
}

// TemplateStore reads templates owned by the external editor.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
}

// MappingStore looks up the active mapping for a (source, template) pair.
// Find returns (nil, nil) when no mapping exists; callers fall back to the
// identity mapping.
type MappingStore interface {
	Find(ctx context.Context, sourceID, templateID string) (*domain.Mapping, error)
}

// AccountStore reads social account credentials.
type AccountStore interface {
	Get(ctx context.Context, id string) (*domain.SocialAccount, error)
}

// CardStore persists rendered cards.
type CardStore interface {
	Create(ctx context.Context, card *domain.NewsCard) error
	Get(ctx context.Context, id string) (*domain.NewsCard, error)
	// UpdateStatus applies a forward transition. It is conditional on the
	// current status so concurrent writers cannot move a card backwards.
	UpdateStatus(ctx context.Context, id string, from, to domain.CardStatus) error
}

// PostStore persists publish attempts. MarkPosted and MarkFailed only apply
// while the row is still QUEUED, which makes terminal states idempotent.
type PostStore interface {
	Create(ctx context.Context, post *domain.Post) error
	DueQueued(ctx context.Context, now time.Time, limit int) ([]domain.Post, error)
	MarkPosted(ctx context.Context, id, platformPostID, platformURL string) (bool, error)
	MarkFailed(ctx context.Context, id, message string) (bool, error)
}

// SettingsStore persists per-user autopilot configuration.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (*domain.AutopilotSettings, error)
	SetEnabled(ctx context.Context, userID string, enabled bool) error
	// TryBeginRun advances last_run_at iff the autopilot is enabled and due.
	// Exactly one of several overlapping triggers wins.
	TryBeginRun(ctx context.Context, userID string, now time.Time) (bool, error)
	RecordError(ctx context.Context, userID, message string) error
}

// RunStore persists autopilot run bookkeeping.
type RunStore interface {
	Create(ctx context.Context, run *domain.AutopilotRun) error
	Complete(ctx context.Context, run *domain.AutopilotRun) error
}

// PublishRequest is one social publish call.
type PublishRequest struct {
	PageID      string
	AccessToken string
	Caption     string
	Image       []byte
}

// PublishResult carries the platform identifiers of a successful publish.
type PublishResult struct {
	ID     string
	PostID string
	URL    string
}

// SocialPublisher performs the external publish API call. Any non-2xx
// response or transport error is a uniform publish failure.
type SocialPublisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

// Scheduler drives recurring jobs; Stop must cancel a started job cleanly.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
