package api

import (
	"context"
	"net/http"

	"github.com/okian/fleetpower/internal/adapters/history"
)

const defaultHistoryLimit = 5

// HistoryDependencies reads previously published boards.
type HistoryDependencies interface {
	History(ctx context.Context, n int) ([]history.Record, error)
}

// HistoryHandler handles history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetHistory handles GET /history?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultHistoryLimit, h.maxLimit)
	if err != nil {
		writeErrorFor(w, NewKind(op, err))
		return
	}
	recs, err := h.deps.History(r.Context(), n)
	if err != nil {
		writeErrorFor(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
