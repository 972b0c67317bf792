// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Read operations expose ranked scoreboards.
	TeamScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error)
	IndividualScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error)
	SubjectScoreboards(ctx context.Context, refresh bool) (types.SubjectScoreboards, error)
	LiveGutsScoreboard(ctx context.Context) (types.Scoreboard, error)

	// Write operations mutate answers and trigger recomputation.
	SubmitScore(ctx context.Context, questionID string, ref model.ParticipantRef, value *float64) error
	PrepareRound(ctx context.Context, roundRef string) error
	Recalculate(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	scoreboardHandler *ScoreboardHandler
	liveHandler       *LiveHandler
	answersHandler    *AnswersHandler
	adminHandler      *AdminHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter on scoreboard reads.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		scoreboardHandler: NewScoreboardHandler(deps, maxLimit),
		liveHandler:       NewLiveHandler(deps),
		answersHandler:    NewAnswersHandler(deps),
		adminHandler:      NewAdminHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/live", s.liveHandler.HandlePage)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/answers", MetricsMiddleware(s.answersHandler.HandlePostAnswer, "answers"))
	mux.HandleFunc("/rounds/", MetricsMiddleware(s.answersHandler.HandlePrepareRound, "rounds"))
	mux.HandleFunc("/recalculate", MetricsMiddleware(s.adminHandler.HandleRecalculate, "recalculate"))
	mux.HandleFunc("/scoreboards/team", MetricsMiddleware(s.scoreboardHandler.HandleTeam, "scoreboard_team"))
	mux.HandleFunc("/scoreboards/individual", MetricsMiddleware(s.scoreboardHandler.HandleIndividual, "scoreboard_individual"))
	mux.HandleFunc("/scoreboards/subjects", MetricsMiddleware(s.scoreboardHandler.HandleSubjects, "scoreboard_subjects"))
	mux.HandleFunc("/scoreboards/guts/live", MetricsMiddleware(s.liveHandler.HandleLiveGuts, "scoreboard_live"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service-layer sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, service.ErrUnknownQuestion), errors.Is(err, service.ErrUnknownRound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidParticipant):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func parseRefresh(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "true"
}
