package api

import (
	"context"
	"net/http"

	service "github.com/okian/fleetpower/internal/app"
)

// RefreshDependencies queues an account for rescoring.
type RefreshDependencies interface {
	Submit(ctx context.Context, address string) (service.Outcome, error)
}

// RefreshHandler handles manual rescore requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	Address string          `json:"address"`
	Status  service.Outcome `json:"status"`
}

// HandleRefresh handles POST /refresh/{address}. A newly queued account is
// 202; one already pending is 200.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	addr, ok := pathParam(r, "/refresh/")
	if !ok {
		writeErrorFor(w, NewKind(op, ErrBadRequest))
		return
	}
	outcome, err := h.deps.Submit(r.Context(), addr)
	if err != nil {
		writeErrorFor(w, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if outcome == service.OutcomeDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, refreshResponse{Address: addr, Status: outcome})
}
