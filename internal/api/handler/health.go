package handler

import (
	"net/http"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// PeerCounter reports live transport sessions
type PeerCounter interface {
	PeerCount() int
}

// HealthHandler handles GET /api/v1/health
type HealthHandler struct {
	phases *phase.Registry
	peers  PeerCounter
}

// NewHealthHandler creates a health handler; peers may be nil
func NewHealthHandler(phases *phase.Registry, peers PeerCounter) *HealthHandler {
	return &HealthHandler{phases: phases, peers: peers}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := response.Health{Status: "ok", Role: string(h.phases.Role())}
	if h.peers != nil {
		resp.Peers = h.peers.PeerCount()
	}
	response.JSON(w, http.StatusOK, resp)
}
