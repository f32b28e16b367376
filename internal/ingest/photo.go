package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"CardForge/internal/ports"
)

// Photos above this size are almost certainly not article photos.
const maxPhotoBytes = 10 << 20

// HTTPPhotoFetcher downloads image bytes for compositing.
type HTTPPhotoFetcher struct {
	client    *http.Client
	userAgent string
}

var _ ports.PhotoFetcher = (*HTTPPhotoFetcher)(nil)

// NewHTTPPhotoFetcher builds a fetcher with a bounded timeout.
func NewHTTPPhotoFetcher(timeout time.Duration, userAgent string) *HTTPPhotoFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPPhotoFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads one image. Size is capped; a non-200 status is an error.
func (f *HTTPPhotoFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(raw) > maxPhotoBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxPhotoBytes)
	}
	return raw, nil
}
