package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"CardForge/internal/domain"
	"CardForge/internal/infrastructure/storage"
	"CardForge/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	name     string
	articles []domain.Article
	err      error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchLatest(context.Context) ([]domain.Article, error) {
	return s.articles, s.err
}

type fakePhotos struct {
	data map[string][]byte
}

func (p *fakePhotos) Fetch(_ context.Context, url string) ([]byte, error) {
	if data, ok := p.data[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no photo at %s", url)
}

type fakeRenderer struct {
	err   error
	calls int
}

func (r *fakeRenderer) Render(domain.Template, map[string]string, ports.RenderAssets) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png-bytes"), nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]bool)}
}

func (l *fakeLedger) key(source, url string) string { return source + "|" + url }

func (l *fakeLedger) IsPosted(_ context.Context, source, url string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[l.key(source, url)], nil
}

func (l *fakeLedger) Commit(_ context.Context, source, url, title string) (*domain.PostedLink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.key(source, url)
	if l.entries[key] {
		return nil, storage.ErrDuplicate
	}
	l.entries[key] = true
	return &domain.PostedLink{Source: source, URL: url, Title: title, PostedAt: time.Now()}, nil
}

type fakeTemplates struct {
	tmpl *domain.Template
}

func (t *fakeTemplates) Get(context.Context, string) (*domain.Template, error) {
	if t.tmpl == nil {
		return nil, storage.ErrNotFound
	}
	return t.tmpl, nil
}

type fakeMappings struct {
	mapping *domain.Mapping
}

func (m *fakeMappings) Find(context.Context, string, string) (*domain.Mapping, error) {
	return m.mapping, nil
}

type fakeCards struct {
	mu    sync.Mutex
	cards map[string]*domain.NewsCard
}

func newFakeCards() *fakeCards {
	return &fakeCards{cards: make(map[string]*domain.NewsCard)}
}

func (c *fakeCards) Create(_ context.Context, card *domain.NewsCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *card
	c.cards[card.ID] = &stored
	return nil
}

func (c *fakeCards) Get(_ context.Context, id string) (*domain.NewsCard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (c *fakeCards) UpdateStatus(_ context.Context, id string, from, to domain.CardStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[id]
	if !ok || card.Status != from {
		return storage.ErrNotFound
	}
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	card.Status = to
	return nil
}

func (c *fakeCards) all() []*domain.NewsCard {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.NewsCard, 0, len(c.cards))
	for _, card := range c.cards {
		copied := *card
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakePosts struct {
	mu    sync.Mutex
	posts map[string]*domain.Post
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: make(map[string]*domain.Post)}
}

func (p *fakePosts) Create(_ context.Context, post *domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored := *post
	p.posts[post.ID] = &stored
	return nil
}

func (p *fakePosts) DueQueued(_ context.Context, now time.Time, limit int) ([]domain.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var due []domain.Post
	for _, post := range p.posts {
		if post.Status == domain.PostQueued && post.ScheduledFor != nil && !post.ScheduledFor.After(now) {
			due = append(due, *post)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (p *fakePosts) MarkPosted(_ context.Context, id, platformPostID, platformURL string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	post, ok := p.posts[id]
	if !ok || post.Status != domain.PostQueued {
		return false, nil
	}
	post.Status = domain.PostPosted
	post.PlatformPostID = platformPostID
	post.PlatformURL = platformURL
	return true, nil
}

func (p *fakePosts) MarkFailed(_ context.Context, id, message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	post, ok := p.posts[id]
	if !ok || post.Status != domain.PostQueued {
		return false, nil
	}
	post.Status = domain.PostFailed
	post.ErrorMessage = message
	return true, nil
}

func (p *fakePosts) get(id string) *domain.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	if post, ok := p.posts[id]; ok {
		copied := *post
		return &copied
	}
	return nil
}

type fakeSettings struct {
	mu       sync.Mutex
	settings *domain.AutopilotSettings
	due      bool
	errors   []string
}

func (s *fakeSettings) Get(_ context.Context, userID string) (*domain.AutopilotSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil || s.settings.UserID != userID {
		return nil, storage.ErrNotFound
	}
	copied := *s.settings
	return &copied, nil
}

func (s *fakeSettings) SetEnabled(_ context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings != nil {
		s.settings.Enabled = enabled
	}
	return nil
}

func (s *fakeSettings) TryBeginRun(_ context.Context, _ string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.due {
		return false, nil
	}
	s.due = false
	s.settings.LastRunAt = &now
	return true, nil
}

func (s *fakeSettings) enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings != nil && s.settings.Enabled
}

func (s *fakeSettings) RecordError(_ context.Context, _ string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	return nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]*domain.AutopilotRun
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[string]*domain.AutopilotRun)}
}

func (r *fakeRuns) Create(_ context.Context, run *domain.AutopilotRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *fakeRuns) Complete(_ context.Context, run *domain.AutopilotRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.runs[run.ID]
	if !ok || existing.CompletedAt != nil {
		return errors.New("run not open")
	}
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *fakeRuns) get(id string) *domain.AutopilotRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		copied := *run
		return &copied
	}
	return nil
}

type fakeAccounts struct {
	accounts map[string]*domain.SocialAccount
}

func (a *fakeAccounts) Get(_ context.Context, id string) (*domain.SocialAccount, error) {
	if account, ok := a.accounts[id]; ok {
		return account, nil
	}
	return nil, storage.ErrNotFound
}

type fakeSocial struct {
	mu       sync.Mutex
	err      error
	requests []ports.PublishRequest
}

func (s *fakeSocial) Publish(_ context.Context, req ports.PublishRequest) (ports.PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return ports.PublishResult{}, s.err
	}
	n := len(s.requests)
	return ports.PublishResult{
		ID:     fmt.Sprintf("photo-%d", n),
		PostID: fmt.Sprintf("page_%d", n),
		URL:    fmt.Sprintf("https://www.facebook.com/page_%d", n),
	}, nil
}

func (s *fakeSocial) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
