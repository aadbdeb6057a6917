package handler

import (
	"net/http"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// AvatarHandler lists spawned avatars and the appearance catalog
type AvatarHandler struct {
	loop    Runner
	phases  *phase.Registry
	catalog *avatar.Catalog
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(loop Runner, phases *phase.Registry, catalog *avatar.Catalog) *AvatarHandler {
	return &AvatarHandler{loop: loop, phases: phases, catalog: catalog}
}

// List handles GET /api/v1/avatars
func (h *AvatarHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		current *string
		states  []lifecycle.AvatarState
	)
	err := h.loop.Call(r.Context(), func() {
		current = phaseName(h.phases)
		if s, ok := h.phases.ActiveController().(spawner); ok {
			states = s.Lifecycle().Avatars()
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AvatarsFromModel(current, states, h.catalog.All()))
}
