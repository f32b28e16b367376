// Package social implements the publish API client for Graph-style page
// photo posts.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"CardForge/internal/ports"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// GraphClient posts card images to a platform page. Any transport error or
// non-2xx response is a uniform publish failure.
type GraphClient struct {
	baseURL string
	client  *http.Client
}

var _ ports.SocialPublisher = (*GraphClient)(nil)

// NewGraphClient builds the client; baseURL is overridable for tests.
func NewGraphClient(baseURL string) *GraphClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GraphClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish uploads the card as a page photo with its caption. Called exactly
// once per publish attempt; retries are the caller's policy, not ours.
func (c *GraphClient) Publish(ctx context.Context, pub ports.PublishRequest) (ports.PublishResult, error) {
	if pub.PageID == "" || pub.AccessToken == "" {
		return ports.PublishResult{}, fmt.Errorf("publish misconfigured: missing page or token")
	}
	if len(pub.Image) == 0 {
		return ports.PublishResult{}, fmt.Errorf("publish without image bytes")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("caption", pub.Caption); err != nil {
		return ports.PublishResult{}, fmt.Errorf("build form: %w", err)
	}
	if err := form.WriteField("access_token", pub.AccessToken); err != nil {
		return ports.PublishResult{}, fmt.Errorf("build form: %w", err)
	}
	file, err := form.CreateFormFile("source", "card.png")
	if err != nil {
		return ports.PublishResult{}, fmt.Errorf("build form: %w", err)
	}
	if _, err := file.Write(pub.Image); err != nil {
		return ports.PublishResult{}, fmt.Errorf("build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return ports.PublishResult{}, fmt.Errorf("build form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/photos", c.baseURL, pub.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return ports.PublishResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return ports.PublishResult{}, fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.PublishResult{}, fmt.Errorf("publish error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.PublishResult{}, fmt.Errorf("decode publish response: %w", err)
	}

	postID := decoded.PostID
	if postID == "" {
		postID = decoded.ID
	}
	return ports.PublishResult{
		ID:     decoded.ID,
		PostID: postID,
		URL:    "https://www.facebook.com/" + postID,
	}, nil
}
