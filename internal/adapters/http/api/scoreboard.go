// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/domain/types"
)

// ScoreboardDependencies defines the interface for scoreboard reads.
type ScoreboardDependencies interface {
	TeamScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error)
	IndividualScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error)
	SubjectScoreboards(ctx context.Context, refresh bool) (types.SubjectScoreboards, error)
}

// ScoreboardHandler handles scoreboard requests.
type ScoreboardHandler struct {
	deps     ScoreboardDependencies
	maxLimit int
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps ScoreboardDependencies, maxLimit int) *ScoreboardHandler {
	return &ScoreboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleTeam handles GET /scoreboards/team?limit=N&refresh=true requests.
func (h *ScoreboardHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.deps.TeamScoreboard)
}

// HandleIndividual handles GET /scoreboards/individual requests.
func (h *ScoreboardHandler) HandleIndividual(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.deps.IndividualScoreboard)
}

// HandleSubjects handles GET /scoreboards/subjects requests.
func (h *ScoreboardHandler) HandleSubjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	boards, err := h.deps.SubjectScoreboards(r.Context(), parseRefresh(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit > 0 {
		for _, bySubject := range boards {
			for subject, standings := range bySubject {
				if len(standings) > limit {
					bySubject[subject] = standings[:limit]
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *ScoreboardHandler) serve(w http.ResponseWriter, r *http.Request, fetch func(context.Context, bool) (types.Scoreboard, error)) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	board, err := fetch(r.Context(), parseRefresh(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit > 0 {
		for division, standings := range board {
			if len(standings) > limit {
				board[division] = standings[:limit]
			}
		}
	}
	writeJSON(w, http.StatusOK, board)
}

// parseLimit reads the optional limit parameter. Zero means unlimited.
func (h *ScoreboardHandler) parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		return 0, fmt.Errorf("%w: limit exceeds maximum of %d", ErrBadRequest, h.maxLimit)
	}
	return n, nil
}
