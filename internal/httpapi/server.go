// Package httpapi exposes the thin trigger endpoints. All business rules live
// in the usecases; handlers only translate HTTP to calls and results to JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"CardForge/internal/domain"
	"CardForge/internal/usecase"
)

// Runner triggers one autopilot cycle.
type Runner interface {
	RunOnce(ctx context.Context, userID string) (*domain.RunResult, error)
}

// LoopController switches a user's autopilot loop on and off.
type LoopController interface {
	Start(ctx context.Context, userID string) error
	Stop(ctx context.Context, userID string) error
}

// Sweeper processes due queued posts.
type Sweeper interface {
	SweepDue(ctx context.Context, now time.Time) ([]usecase.PostResult, error)
}

// Server wires the trigger routes.
type Server struct {
	autopilot   Runner
	loop        LoopController
	publisher   Sweeper
	cronSecret  string
	defaultUser string
	logger      *slog.Logger
}

// NewServer builds the handler set. defaultUser is the user triggers act on
// when the request names none.
func NewServer(
	autopilot Runner,
	loop LoopController,
	publisher Sweeper,
	cronSecret string,
	defaultUser string,
	logger *slog.Logger,
) *Server {
	return &Server{
		autopilot:   autopilot,
		loop:        loop,
		publisher:   publisher,
		cronSecret:  cronSecret,
		defaultUser: defaultUser,
		logger:      logger.With("component", "http"),
	}
}

// Router assembles the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/autopilot/run", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/api/autopilot", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/api/posts/sweep", s.handleSweep).Methods(http.MethodGet)
	return r
}

type runRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	// An empty or absent body means "the default user".
	var req runRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	userID := req.UserID
	if userID == "" {
		userID = s.defaultUser
	}

	result, err := s.autopilot.RunOnce(r.Context(), userID)
	switch {
	case errors.Is(err, usecase.ErrDisabled), errors.Is(err, usecase.ErrNotDue):
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	case err != nil:
		s.logger.Error("manual run failed", "user", userID, "error", err)
		if result != nil {
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "autopilot run failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type toggleRequest struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid request body",
		})
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = s.defaultUser
	}

	var err error
	var message string
	switch req.Action {
	case "start":
		err = s.loop.Start(r.Context(), userID)
		message = "autopilot started"
	case "stop":
		err = s.loop.Stop(r.Context(), userID)
		message = "autopilot stopped"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "action must be start or stop",
		})
		return
	}
	if err != nil {
		s.logger.Error("toggle failed", "action", req.Action, "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "autopilot toggle failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "unauthorized",
		})
		return
	}

	results, err := s.publisher.SweepDue(r.Context(), time.Now())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "sweep failed",
		})
		return
	}
	if results == nil {
		results = []usecase.PostResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(results),
		"results":   results,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	return ok && s.cronSecret != "" && token == s.cronSecret
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
