// Package ingest fetches and parses articles from external news sources. The
// primary strategy is plain HTTP plus DOM queries; a headless-browser
// fallback covers JS-rendered pages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config describes one news source.
type Config struct {
	Name        string
	ListingURL  string
	UserAgent   string
	MinTitleLen int
	MaxTitleLen int
	MaxArticles int
	FetchDelay  time.Duration
	Timeout     time.Duration
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MinTitleLen == 0 {
		c.MinTitleLen = 15
	}
	if c.MaxTitleLen == 0 {
		c.MaxTitleLen = 200
	}
	if c.MaxArticles == 0 {
		c.MaxArticles = 10
	}
	if c.FetchDelay == 0 {
		c.FetchDelay = 500 * time.Millisecond
	}
	if c.Timeout == 0 {
		c.Timeout = 20 * time.Second
	}
}

// HTTPSource scrapes one source's listing page and enriches each discovered
// link through a detail fetcher. Listing-page order is preserved.
type HTTPSource struct {
	cfg     Config
	client  *http.Client
	details ports.DetailFetcher
	logger  *slog.Logger
}

var _ ports.ArticleSource = (*HTTPSource)(nil)

// NewHTTPSource wires a source from config; the detail fetcher is usually the
// primary/fallback composite.
func NewHTTPSource(cfg Config, details ports.DetailFetcher, logger *slog.Logger) *HTTPSource {
	cfg.applyDefaults()
	return &HTTPSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		details: details,
		logger:  logger,
	}
}

// Name identifies the source; it is also the dedup ledger scope.
func (s *HTTPSource) Name() string { return s.cfg.Name }

// FetchLatest scrapes the listing and fetches detail for each article. A
// failed detail fetch degrades that article to empty fields; a failed listing
// fetch aborts the whole call.
func (s *HTTPSource) FetchLatest(ctx context.Context) ([]domain.Article, error) {
	doc, baseURL, err := s.fetchDocument(ctx, s.cfg.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.cfg.Name, err)
	}

	links := s.extractLinks(doc, baseURL)
	s.debug("listing scraped", "links", len(links))

	articles := make([]domain.Article, 0, len(links))
	for i, link := range links {
		if i > 0 {
			// Sequential with a small delay to respect the source's rate
			// tolerance and keep log ordering meaningful.
			select {
			case <-time.After(s.cfg.FetchDelay):
			case <-ctx.Done():
				return articles, ctx.Err()
			}
		}

		article := domain.Article{Title: link.title, Link: link.href}
		detail, err := s.details.FetchDetail(ctx, link.href)
		if err != nil {
			s.debug("detail fetch failed", "url", link.href, "error", err)
		} else {
			article.Image = detail.Image
			article.Description = detail.Description
			article.Author = detail.Author
			article.PublishedAt = detail.PublishedAt
			if article.Description == "" && detail.Body != "" {
				article.Description = clip(detail.Body, 300)
			}
		}
		articles = append(articles, article)
	}

	return articles, nil
}

type listingLink struct {
	href  string
	title string
}

// extractLinks walks anchors in page order, keeps those matching the article
// link shape, and dedups within the page.
func (s *HTTPSource) extractLinks(doc *goquery.Document, base *url.URL) []listingLink {
	var links []listingLink
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if len(links) >= s.cfg.MaxArticles {
			return
		}

		href, _ := a.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		parsed, err := url.Parse(resolved)
		if err != nil || !isArticleLink(parsed) {
			return
		}

		title := strings.Join(strings.Fields(a.Text()), " ")
		if len(title) < s.cfg.MinTitleLen || len(title) > s.cfg.MaxTitleLen {
			return
		}

		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, listingLink{href: resolved, title: title})
	})

	return links
}

func (s *HTTPSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse base url: %w", err)
	}
	return doc, base, nil
}

func (s *HTTPSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	clipped := s[:max]
	if idx := strings.LastIndex(clipped, " "); idx > 0 {
		clipped = clipped[:idx]
	} else {
		// No space to cut at; drop any rune torn by the byte cut.
		for len(clipped) > 0 {
			if r, size := utf8.DecodeLastRuneInString(clipped); r != utf8.RuneError || size != 1 {
				break
			}
			clipped = clipped[:len(clipped)-1]
		}
	}
	return clipped + "…"
}
