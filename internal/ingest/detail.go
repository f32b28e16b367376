package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// HTTPDetailFetcher is the primary detail strategy: plain GET plus the shared
// extraction heuristics.
type HTTPDetailFetcher struct {
	client    *http.Client
	userAgent string
}

var _ ports.DetailFetcher = (*HTTPDetailFetcher)(nil)

// NewHTTPDetailFetcher builds the primary fetcher; a nil client gets a
// 20-second timeout default.
func NewHTTPDetailFetcher(client *http.Client, userAgent string) *HTTPDetailFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPDetailFetcher{client: client, userAgent: userAgent}
}

// FetchDetail downloads and mines one article page.
func (f *HTTPDetailFetcher) FetchDetail(ctx context.Context, pageURL string) (domain.ArticleDetail, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("parse article url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("request article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ArticleDetail{}, fmt.Errorf("article returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("parse article: %w", err)
	}

	return extractDetail(doc, base), nil
}

// FallbackFetcher tries the primary strategy and falls back to the headless
// browser when the primary errors or yields nothing usable.
type FallbackFetcher struct {
	primary  ports.DetailFetcher
	fallback ports.DetailFetcher
	logger   *slog.Logger
}

var _ ports.DetailFetcher = (*FallbackFetcher)(nil)

// NewFallbackFetcher composes the two strategies; fallback may be nil when
// headless rendering is disabled.
func NewFallbackFetcher(primary, fallback ports.DetailFetcher, logger *slog.Logger) *FallbackFetcher {
	return &FallbackFetcher{primary: primary, fallback: fallback, logger: logger}
}

// FetchDetail runs the primary path first. The fallback only engages when the
// primary fails outright or comes back empty.
func (f *FallbackFetcher) FetchDetail(ctx context.Context, pageURL string) (domain.ArticleDetail, error) {
	detail, err := f.primary.FetchDetail(ctx, pageURL)
	if err == nil && !detail.Empty() {
		return detail, nil
	}

	if f.fallback == nil {
		return detail, err
	}

	if f.logger != nil {
		f.logger.Debug("primary detail strategy exhausted, rendering", "url", pageURL, "error", err)
	}
	return f.fallback.FetchDetail(ctx, pageURL)
}
