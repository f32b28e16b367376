// Package usecase holds the application services: the autopilot cycle, the
// publish orchestrator, and the loop controller that drives them.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CardForge/internal/domain"
	"CardForge/internal/infrastructure/storage"
	"CardForge/internal/mapping"
	"CardForge/internal/ports"
	"CardForge/internal/sensitize"
)

var (
	// ErrDisabled means the user's autopilot is switched off.
	ErrDisabled = errors.New("autopilot disabled")
	// ErrNotDue means the interval gate rejected this trigger; another
	// trigger ran recently or is running now.
	ErrNotDue = errors.New("autopilot not due")
	// ErrUnknownSource means the configured source has no registered adapter.
	ErrUnknownSource = errors.New("unknown source")
)

// Autopilot runs one news-to-cards cycle per call. A cycle is fail-soft:
// per-article problems are counted, only a listing-level fetch failure aborts
// the run.
type Autopilot struct {
	sources   map[string]ports.ArticleSource
	photos    ports.PhotoFetcher
	renderer  ports.Renderer
	ledger    ports.Ledger
	templates ports.TemplateStore
	mappings  ports.MappingStore
	cards     ports.CardStore
	settings  ports.SettingsStore
	runs      ports.RunStore
	delay     time.Duration
	logger    *slog.Logger
}

// NewAutopilot wires the cycle service. delay spaces per-article processing
// to keep the footprint on upstream sites polite.
func NewAutopilot(
	sources []ports.ArticleSource,
	photos ports.PhotoFetcher,
	renderer ports.Renderer,
	ledger ports.Ledger,
	templates ports.TemplateStore,
	mappings ports.MappingStore,
	cards ports.CardStore,
	settings ports.SettingsStore,
	runs ports.RunStore,
	delay time.Duration,
	logger *slog.Logger,
) *Autopilot {
	byName := make(map[string]ports.ArticleSource, len(sources))
	for _, src := range sources {
		byName[src.Name()] = src
	}
	return &Autopilot{
		sources:   byName,
		photos:    photos,
		renderer:  renderer,
		ledger:    ledger,
		templates: templates,
		mappings:  mappings,
		cards:     cards,
		settings:  settings,
		runs:      runs,
		delay:     delay,
		logger:    logger.With("component", "autopilot"),
	}
}

// RunOnce executes one cycle for one user. The settings row is re-read every
// call; the conditional last_run_at advance in TryBeginRun is what serializes
// overlapping triggers, so a losing caller returns ErrNotDue without side
// effects.
func (a *Autopilot) RunOnce(ctx context.Context, userID string) (*domain.RunResult, error) {
	settings, err := a.settings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		return nil, ErrDisabled
	}

	ok, err := a.settings.TryBeginRun(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	if !ok {
		return nil, ErrNotDue
	}

	run := &domain.AutopilotRun{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.RunRunning,
		StartedAt: time.Now(),
	}
	if err := a.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if err := a.cycle(ctx, settings, run); err != nil {
		a.failRun(ctx, run, err)
		return result(run), err
	}

	run.Status = domain.RunCompleted
	a.completeRun(ctx, run)
	a.logger.Info("cycle completed",
		"user", userID,
		"found", run.NewsFound,
		"created", run.CardsCreated,
		"skipped", run.Skipped,
		"errors", run.Errors,
	)
	return result(run), nil
}

func (a *Autopilot) cycle(ctx context.Context, settings *domain.AutopilotSettings, run *domain.AutopilotRun) error {
	source, ok := a.sources[settings.Source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, settings.Source)
	}

	tmpl, err := a.templates.Get(ctx, settings.TemplateID)
	if err != nil {
		return fmt.Errorf("load template %s: %w", settings.TemplateID, err)
	}
	fieldMap, err := a.mappings.Find(ctx, settings.Source, settings.TemplateID)
	if err != nil {
		return fmt.Errorf("load mapping: %w", err)
	}

	articles, err := source.FetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", settings.Source, err)
	}
	run.NewsFound = len(articles)

	for i, article := range articles {
		if i > 0 && a.delay > 0 {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		a.processArticle(ctx, settings, *tmpl, fieldMap, article, run)
	}
	return nil
}

// processArticle moves one article through skip checks, the ledger commit,
// rendering, and card persistence. The ledger commit happens before the
// render: it is the single atomic claim on the (source, url) pair, so two
// overlapping cycles cannot both produce a card for the same article. A
// render failure after a won commit leaves the article claimed and skipped
// for good, which we prefer over duplicate posts.
func (a *Autopilot) processArticle(
	ctx context.Context,
	settings *domain.AutopilotSettings,
	tmpl domain.Template,
	fieldMap *domain.Mapping,
	article domain.Article,
	run *domain.AutopilotRun,
) {
	posted, err := a.ledger.IsPosted(ctx, settings.Source, article.Link)
	if err != nil {
		a.countError(run, "ledger check", article.Link, err)
		return
	}
	if posted {
		run.Skipped++
		return
	}

	switch settings.SensitiveMode {
	case domain.SensitiveSkip:
		if sensitize.Contains(article.Title) || sensitize.Contains(article.Description) {
			run.Skipped++
			a.logger.Debug("sensitive article skipped", "url", article.Link)
			return
		}
	case domain.SensitiveMask:
		article.Title = sensitize.Mask(article.Title)
		article.Description = sensitize.Mask(article.Description)
	}

	if _, err := a.ledger.Commit(ctx, settings.Source, article.Link, article.Title); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			run.Skipped++
			return
		}
		a.countError(run, "ledger commit", article.Link, err)
		return
	}

	resolved := mapping.Resolve(fieldMap, article, time.Now())
	assets := a.fetchAssets(ctx, tmpl, resolved.Values)

	image, err := a.renderer.Render(tmpl, resolved.Values, assets)
	if err != nil {
		a.countError(run, "render", article.Link, err)
		return
	}

	mappingID := ""
	if fieldMap != nil {
		mappingID = fieldMap.ID
	}
	card := &domain.NewsCard{
		ID:         uuid.NewString(),
		Image:      image,
		Status:     domain.CardGenerated,
		SourceData: article,
		TemplateID: tmpl.ID,
		MappingID:  mappingID,
		CreatedAt:  time.Now(),
	}
	if err := a.cards.Create(ctx, card); err != nil {
		a.countError(run, "store card", article.Link, err)
		return
	}
	run.CardsCreated++
}

// fetchAssets prefetches every remote image a render will need. Fetch
// failures leave the slot empty; the renderer degrades per object.
func (a *Autopilot) fetchAssets(ctx context.Context, tmpl domain.Template, values map[string]string) ports.RenderAssets {
	assets := ports.RenderAssets{Static: make(map[string][]byte)}

	if photoURL := values[domain.DynamicImageKey]; photoURL != "" {
		data, err := a.photos.Fetch(ctx, photoURL)
		if err != nil {
			a.logger.Warn("photo fetch failed", "url", photoURL, "error", err)
		} else {
			assets.Photo = data
		}
	}

	if tmpl.BackgroundImage != "" {
		data, err := a.photos.Fetch(ctx, tmpl.BackgroundImage)
		if err != nil {
			a.logger.Warn("background fetch failed", "url", tmpl.BackgroundImage, "error", err)
		} else {
			assets.Background = data
		}
	}

	for _, obj := range tmpl.Objects {
		img, ok := obj.(domain.ImageObject)
		if !ok || img.URL == "" {
			continue
		}
		if _, done := assets.Static[img.URL]; done {
			continue
		}
		data, err := a.photos.Fetch(ctx, img.URL)
		if err != nil {
			a.logger.Warn("artwork fetch failed", "url", img.URL, "error", err)
			continue
		}
		assets.Static[img.URL] = data
	}

	return assets
}

func (a *Autopilot) countError(run *domain.AutopilotRun, stage, url string, err error) {
	run.Errors++
	run.LastError = fmt.Sprintf("%s: %v", stage, err)
	a.logger.Error("article failed", "stage", stage, "url", url, "error", err)
}

func (a *Autopilot) failRun(ctx context.Context, run *domain.AutopilotRun, cause error) {
	run.Status = domain.RunFailed
	run.LastError = cause.Error()
	a.completeRun(ctx, run)
	if err := a.settings.RecordError(ctx, run.UserID, cause.Error()); err != nil {
		a.logger.Error("record settings error failed", "user", run.UserID, "error", err)
	}
	a.logger.Error("cycle failed", "user", run.UserID, "error", cause)
}

func (a *Autopilot) completeRun(ctx context.Context, run *domain.AutopilotRun) {
	now := time.Now()
	run.CompletedAt = &now
	if err := a.runs.Complete(ctx, run); err != nil {
		a.logger.Error("complete run failed", "run", run.ID, "error", err)
	}
}

func result(run *domain.AutopilotRun) *domain.RunResult {
	return &domain.RunResult{
		RunID:        run.ID,
		Success:      run.Status == domain.RunCompleted,
		NewsFound:    run.NewsFound,
		CardsCreated: run.CardsCreated,
		Skipped:      run.Skipped,
		Errors:       run.Errors,
	}
}
