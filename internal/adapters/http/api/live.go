// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/okian/podium/internal/domain/types"
)

// LiveDependencies defines the interface for live scoreboard reads.
type LiveDependencies interface {
	LiveGutsScoreboard(ctx context.Context) (types.Scoreboard, error)
}

// LiveHandler handles live scoreboard requests.
type LiveHandler struct {
	deps LiveDependencies
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(deps LiveDependencies) *LiveHandler {
	return &LiveHandler{deps: deps}
}

// HandleLiveGuts handles GET /scoreboards/guts/live requests. Results are
// served from a time-windowed cache so polling clients stay cheap.
func (h *LiveHandler) HandleLiveGuts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	board, err := h.deps.LiveGutsScoreboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandlePage handles GET /live requests.
// Returns an HTML page with JavaScript that polls the live guts endpoint.
func (h *LiveHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	// Serve embedded live scoreboard page. http.ServeFileFS needs go 1.22;
	// ServeContent is equivalent here since embed files have a zero modtime.
	f, err := liveFS.Open("live.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, "live.html", time.Time{}, rs)
}
