package handler

import (
	"net/http"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/scene"
	"github.com/mcoot/arenasession/internal/services/loading"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// PhaseHandler reports the phase and scene-loading state
type PhaseHandler struct {
	loop    Runner
	phases  *phase.Registry
	scenes  *scene.Manager
	loading *loading.Coordinator
}

// NewPhaseHandler creates a new phase handler
func NewPhaseHandler(loop Runner, phases *phase.Registry, scenes *scene.Manager, coordinator *loading.Coordinator) *PhaseHandler {
	return &PhaseHandler{loop: loop, phases: phases, scenes: scenes, loading: coordinator}
}

// Get handles GET /api/v1/phase
func (h *PhaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp response.Phase
	err := h.loop.Call(r.Context(), func() {
		resp = response.Phase{
			Role:    string(h.phases.Role()),
			Phase:   phaseName(h.phases),
			Scene:   h.scenes.CurrentScene(),
			Loading: h.scenes.Loading(),
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

// Loading handles GET /api/v1/loading
func (h *PhaseHandler) Loading(w http.ResponseWriter, r *http.Request) {
	var resp response.Loading
	err := h.loop.Call(r.Context(), func() {
		resp = response.Loading{
			Scene:     h.scenes.CurrentScene(),
			Loading:   h.scenes.Loading(),
			AllLoaded: h.loading.AllLoaded(),
		}
		snapshot := h.loading.Snapshot()
		for _, id := range h.loading.Clients() {
			resp.Clients = append(resp.Clients, response.ClientProgress{ClientID: uint64(id), Progress: snapshot[id]})
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}
