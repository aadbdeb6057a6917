package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/session"
)

// SessionHandler exposes the session registry read-only
type SessionHandler struct {
	sessions *session.Registry
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Registry) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.SessionsFromModel(h.sessions.Snapshot()))
}

// Get handles GET /api/v1/sessions/{identity}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := model.PlayerIdentity(mux.Vars(r)["identity"])

	rec, ok := h.sessions.Lookup(identity)
	if !ok {
		WriteError(w, model.ErrSessionNotFound)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(rec))
}
