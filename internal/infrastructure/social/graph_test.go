package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardForge/internal/ports"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/photos", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Flood warning issued", r.FormValue("caption"))
		assert.Equal(t, "token-1", r.FormValue("access_token"))

		file, _, err := r.FormFile("source")
		require.NoError(t, err)
		defer file.Close()

		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":      "photo-9",
			"post_id": "page-1_777",
		})
	}))
	t.Cleanup(srv.Close)

	client := NewGraphClient(srv.URL)
	result, err := client.Publish(context.Background(), ports.PublishRequest{
		PageID:      "page-1",
		AccessToken: "token-1",
		Caption:     "Flood warning issued",
		Image:       []byte{1, 2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "photo-9", result.ID)
	assert.Equal(t, "page-1_777", result.PostID)
	assert.Equal(t, "https://www.facebook.com/page-1_777", result.URL)
}

func TestPublishNon2xxIsFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid token"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := NewGraphClient(srv.URL)
	_, err := client.Publish(context.Background(), ports.PublishRequest{
		PageID:      "page-1",
		AccessToken: "bad",
		Image:       []byte{1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestPublishValidatesInput(t *testing.T) {
	t.Parallel()

	client := NewGraphClient("")

	_, err := client.Publish(context.Background(), ports.PublishRequest{PageID: "p"})
	assert.Error(t, err, "missing token")

	_, err = client.Publish(context.Background(), ports.PublishRequest{PageID: "p", AccessToken: "t"})
	assert.Error(t, err, "missing image")
}
