package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardForge/internal/domain"
	"CardForge/internal/usecase"
)

type stubRunner struct {
	result *domain.RunResult
	err    error
	userID string
}

func (s *stubRunner) RunOnce(_ context.Context, userID string) (*domain.RunResult, error) {
	s.userID = userID
	return s.result, s.err
}

type stubLoop struct {
	started []string
	stopped []string
	err     error
}

func (s *stubLoop) Start(_ context.Context, userID string) error {
	s.started = append(s.started, userID)
	return s.err
}

func (s *stubLoop) Stop(_ context.Context, userID string) error {
	s.stopped = append(s.stopped, userID)
	return s.err
}

type stubSweeper struct {
	results []usecase.PostResult
	err     error
}

func (s *stubSweeper) SweepDue(context.Context, time.Time) ([]usecase.PostResult, error) {
	return s.results, s.err
}

func testServer(runner *stubRunner, loop *stubLoop, sweeper *stubSweeper) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(runner, loop, sweeper, "cron-secret", "user-1", logger)
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestHandleRun(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: &domain.RunResult{
		RunID:        "run-1",
		Success:      true,
		NewsFound:    5,
		CardsCreated: 3,
		Skipped:      2,
	}}
	srv := testServer(runner, &stubLoop{}, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/run", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", runner.userID, "empty body targets the default user")

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run-1", body["runId"])
	assert.Equal(t, float64(5), body["newsFound"])
	assert.Equal(t, float64(3), body["cardsCreated"])
	assert.Equal(t, float64(2), body["skipped"])
}

func TestHandleRunExplicitUser(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: &domain.RunResult{Success: true}}
	srv := testServer(runner, &stubLoop{}, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/run", strings.NewReader(`{"userId":"user-2"}`))
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-2", runner.userID)
}

func TestHandleRunGateErrors(t *testing.T) {
	t.Parallel()

	for _, gateErr := range []error{usecase.ErrDisabled, usecase.ErrNotDue} {
		runner := &stubRunner{err: gateErr}
		srv := testServer(runner, &stubLoop{}, &stubSweeper{})

		req := httptest.NewRequest(http.MethodPost, "/api/autopilot/run", nil)
		resp := httptest.NewRecorder()
		srv.Router().ServeHTTP(resp, req)

		assert.Equal(t, http.StatusConflict, resp.Code)
		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
	}
}

func TestHandleRunFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{err: errors.New("listing unreachable")}
	srv := testServer(runner, &stubLoop{}, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/run", nil)
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestHandleToggle(t *testing.T) {
	t.Parallel()

	loop := &stubLoop{}
	srv := testServer(&stubRunner{}, loop, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/autopilot", strings.NewReader(`{"action":"start"}`))
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"user-1"}, loop.started)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "autopilot started", body["message"])

	req = httptest.NewRequest(http.MethodPost, "/api/autopilot", strings.NewReader(`{"action":"stop","userId":"user-2"}`))
	resp = httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"user-2"}, loop.stopped)
}

func TestHandleToggleRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	srv := testServer(&stubRunner{}, &stubLoop{}, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/autopilot", strings.NewReader(`{"action":"pause"}`))
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleSweep(t *testing.T) {
	t.Parallel()

	sweeper := &stubSweeper{results: []usecase.PostResult{
		{PostID: "post-1", Success: true, PlatformURL: "https://www.facebook.com/page_1"},
		{PostID: "post-2", Success: false, Error: "token expired"},
	}}
	srv := testServer(&stubRunner{}, &stubLoop{}, sweeper)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/sweep", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["processed"])
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
}

func TestHandleSweepAuth(t *testing.T) {
	t.Parallel()

	srv := testServer(&stubRunner{}, &stubLoop{}, &stubSweeper{})

	for name, header := range map[string]string{
		"missing": "",
		"wrong":   "Bearer other-secret",
		"scheme":  "Basic cron-secret",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/posts/sweep", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp := httptest.NewRecorder()
			srv.Router().ServeHTTP(resp, req)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}
}
