package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/internal/domain/power"
)

const maxPowerBody = 1 << 20

// PowerDependencies scores live accounts and ad-hoc fleets.
type PowerDependencies interface {
	Power(ctx context.Context, address string) (power.Result, fleet.Snapshot, error)
	Compute(ships []fleet.ShipAsset, gems fleet.GemHolding) power.Result
}

// PowerHandler handles power requests.
type PowerHandler struct {
	deps PowerDependencies
}

// NewPowerHandler creates a new power handler.
func NewPowerHandler(deps PowerDependencies) *PowerHandler {
	return &PowerHandler{deps: deps}
}

// PowerResponse is a scored account together with the assets it was scored on.
type PowerResponse struct {
	Address string `json:"address"`
	power.Result
	Snapshot fleet.Snapshot `json:"snapshot"`
}

// shipInput is a ship in a compute request. Rarity is derived from the
// image id when omitted.
type shipInput struct {
	TokenID uint64        `json:"token_id"`
	ImageID int           `json:"image_id"`
	Rarity  *fleet.Rarity `json:"rarity,omitempty"`
	Level   int           `json:"level"`
	Staked  bool          `json:"staked"`
}

// ComputeRequest is the body of POST /power.
type ComputeRequest struct {
	Ships []shipInput      `json:"ships"`
	Gems  fleet.GemHolding `json:"gems"`
}

func (c ComputeRequest) assets() []fleet.ShipAsset {
	out := make([]fleet.ShipAsset, 0, len(c.Ships))
	for _, s := range c.Ships {
		ship := fleet.NewShip(s.TokenID, s.ImageID, s.Level, s.Staked)
		if s.Rarity != nil {
			ship.Rarity = s.Rarity.Normalize()
		}
		out = append(out, ship)
	}
	return out
}

// HandleGetPower handles GET /power/{address} requests.
func (h *PowerHandler) HandleGetPower(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_power"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	addr, ok := pathParam(r, "/power/")
	if !ok {
		writeErrorFor(w, NewKind(op, ErrBadRequest))
		return
	}
	res, snap, err := h.deps.Power(r.Context(), addr)
	if err != nil {
		writeErrorFor(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, PowerResponse{Address: snap.Address, Result: res, Snapshot: snap})
}

// HandleComputePower handles POST /power requests that score a fleet given
// in the body. Out-of-range values are clamped rather than rejected.
func (h *PowerHandler) HandleComputePower(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_power"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ComputeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPowerBody)).Decode(&req); err != nil {
		writeErrorFor(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Compute(req.assets(), req.Gems))
}
