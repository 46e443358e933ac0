package api

import (
	"context"
	"net/http"

	service "github.com/okian/fleetpower/internal/app"
)

// UpgradeDependencies reads level-up prices.
type UpgradeDependencies interface {
	UpgradeCosts(ctx context.Context) ([]service.UpgradeRequirement, error)
}

// UpgradeHandler handles upgrade cost requests.
type UpgradeHandler struct {
	deps UpgradeDependencies
}

// NewUpgradeHandler creates a new upgrade handler.
func NewUpgradeHandler(deps UpgradeDependencies) *UpgradeHandler {
	return &UpgradeHandler{deps: deps}
}

// HandleGetUpgrades handles GET /upgrades requests.
func (h *UpgradeHandler) HandleGetUpgrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	costs, err := h.deps.UpgradeCosts(r.Context())
	if err != nil {
		writeErrorFor(w, Wrap("api.get_upgrades", err))
		return
	}
	writeJSON(w, http.StatusOK, costs)
}
