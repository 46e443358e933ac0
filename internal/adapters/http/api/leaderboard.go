package api

import (
	"context"
	"net/http"

	"github.com/okian/fleetpower/internal/adapters/repository"
)

const defaultLeaderboardLimit = 10

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, n int, currentAddress string) (repository.View, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N&address=0x.. requests.
// With address set the caller's own row is ranked into the page.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultLeaderboardLimit, h.maxLimit)
	if err != nil {
		writeErrorFor(w, NewKind(op, err))
		return
	}
	view, err := h.deps.Leaderboard(r.Context(), n, r.URL.Query().Get("address"))
	if err != nil {
		writeErrorFor(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
