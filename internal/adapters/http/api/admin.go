// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// AdminDependencies defines the interface for administrative operations.
type AdminDependencies interface {
	Recalculate(ctx context.Context) error
}

// AdminHandler handles administrative requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleRecalculate handles POST /recalculate requests, forcing a full
// recomputation of every cached aggregate.
func (h *AdminHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Recalculate(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "recalculated"})
}
