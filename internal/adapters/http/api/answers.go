// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// AnswerDependencies defines the interface for answer mutations.
type AnswerDependencies interface {
	SubmitScore(ctx context.Context, questionID string, ref model.ParticipantRef, value *float64) error
	PrepareRound(ctx context.Context, roundRef string) error
}

// AnswersHandler handles answer submission and sheet preparation requests.
type AnswersHandler struct {
	deps AnswerDependencies
}

// NewAnswersHandler creates a new answers handler.
func NewAnswersHandler(deps AnswerDependencies) *AnswersHandler {
	return &AnswersHandler{deps: deps}
}

// answerRequest mirrors the JSON schema for POST /answers. A null value
// marks the answer as ungraded again.
type answerRequest struct {
	QuestionID string   `json:"question_id"`
	StudentID  string   `json:"student_id,omitempty"`
	TeamID     string   `json:"team_id,omitempty"`
	Value      *float64 `json:"value"`
}

func (a answerRequest) validate() error {
	switch {
	case strings.TrimSpace(a.QuestionID) == "":
		return errors.New("missing question_id")
	case a.StudentID == "" && a.TeamID == "":
		return errors.New("one of student_id or team_id is required")
	case a.StudentID != "" && a.TeamID != "":
		return errors.New("student_id and team_id are mutually exclusive")
	}
	return nil
}

func (a answerRequest) participant() model.ParticipantRef {
	if a.StudentID != "" {
		return model.StudentRef(a.StudentID)
	}
	return model.TeamRef(a.TeamID)
}

// HandlePostAnswer handles POST /answers requests.
func (h *AnswersHandler) HandlePostAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.SubmitScore(r.Context(), req.QuestionID, req.participant(), req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "recorded"})
}

// HandlePrepareRound handles POST /rounds/{ref}/answers requests, creating
// blank answer rows for every eligible participant in the round.
func (h *AnswersHandler) HandlePrepareRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	// Extract the round ref from /rounds/{ref}/answers
	path := strings.TrimPrefix(r.URL.Path, "/rounds/")
	ref, rest, ok := strings.Cut(path, "/")
	if !ok || ref == "" || rest != "answers" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.PrepareRound(r.Context(), ref); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "prepared"})
}
