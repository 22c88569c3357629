package api

import (
	"context"
	"net/http"

	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/model"
)

// ProfileDependencies defines the profile operations.
type ProfileDependencies interface {
	PutProfile(ctx context.Context, memberID string, energies insight.Profile, wheel int) (model.Profile, bool, error)
	Profile(ctx context.Context, memberID string) (model.Profile, error)
}

// ProfileHandler handles insight profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// profileRequest carries energies in red, green, blue, yellow order.
type profileRequest struct {
	Energies      *[insight.Dimensions]float64 `json:"energies"`
	WheelPosition int                          `json:"wheel_position"`
}

// HandlePut handles PUT /members/{member}/profile requests. It answers 201
// when the profile is new and 200 when it replaced one.
func (h *ProfileHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_profile"
	var req profileRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Energies == nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, insight.ErrInvalidProfile))
		return
	}
	p, created, err := h.deps.PutProfile(r.Context(), r.PathValue("member"), insight.Profile(*req.Energies), req.WheelPosition)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// HandleGet handles GET /members/{member}/profile requests.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profile(r.Context(), r.PathValue("member"))
	if err != nil {
		writeError(w, r, Wrap("api.get_profile", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
