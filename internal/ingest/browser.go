package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"CardForge/internal/domain"
	"CardForge/internal/ports"
)

// BrowserFetcher renders article pages in headless Chrome so JS-injected
// content and lazy-loaded images become visible to the shared extraction
// heuristics.
type BrowserFetcher struct {
	timeout time.Duration
	settle  time.Duration
	logger  *slog.Logger
}

var _ ports.DetailFetcher = (*BrowserFetcher)(nil)

// NewBrowserFetcher configures the fallback strategy. Settle approximates a
// network-idle wait after navigation.
func NewBrowserFetcher(timeout, settle time.Duration, logger *slog.Logger) *BrowserFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if settle == 0 {
		settle = 2 * time.Second
	}
	return &BrowserFetcher{timeout: timeout, settle: settle, logger: logger}
}

// FetchDetail navigates the page, waits for it to settle, and mines the live
// DOM. On top of the shared heuristics it also falls back to the largest
// text block when the page carries too little paragraph text.
func (f *BrowserFetcher) FetchDetail(ctx context.Context, pageURL string) (domain.ArticleDetail, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("parse article url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ArticleDetail{}, fmt.Errorf("parse rendered dom: %w", err)
	}

	detail := extractDetail(doc, base)
	if len(detail.Body) < minBodyLength {
		if largest := largestParagraph(doc); len(largest) > len(detail.Body) {
			detail.Body = largest
		}
	}

	if f.logger != nil {
		f.logger.Debug("rendered detail", "url", pageURL, "image", detail.Image != "", "body_len", len(detail.Body))
	}
	return detail, nil
}
