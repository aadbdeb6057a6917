package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/arenasession/internal/api/request"
	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/game"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// defaultObjective names objectives reported without a name
const defaultObjective = "boss"

// GameHandler lets gameplay collaborators report deaths and objective kills
// into the running match
type GameHandler struct {
	loop   Runner
	phases *phase.Registry
}

// NewGameHandler creates a new game handler
func NewGameHandler(loop Runner, phases *phase.Registry) *GameHandler {
	return &GameHandler{loop: loop, phases: phases}
}

// Hit handles POST /api/v1/avatars/{client_id}/hit
func (h *GameHandler) Hit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["client_id"], 10, 64)
	if err != nil {
		WriteError(w, NewInvalidRequestError("client_id must be a number"))
		return
	}
	clientID := model.ClientID(id)

	h.report(w, r, func(g *game.Controller) error {
		if !g.Lifecycle().ApplyHit(clientID) {
			return fmt.Errorf("hit client %d: %w", clientID, model.ErrAvatarNotFound)
		}
		return nil
	})
}

// Objective handles POST /api/v1/game/objective
func (h *GameHandler) Objective(w http.ResponseWriter, r *http.Request) {
	var req request.ObjectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		req.Name = defaultObjective
	}

	h.report(w, r, func(g *game.Controller) error {
		if !g.DefeatObjective(req.Name) {
			return fmt.Errorf("objective %q: round already decided: %w", req.Name, model.ErrWrongPhase)
		}
		return nil
	})
}

// report runs fn against the active match on the loop and answers with the
// round state that results
func (h *GameHandler) report(w http.ResponseWriter, r *http.Request, fn func(*game.Controller) error) {
	var (
		resp      response.Round
		reportErr error
	)
	err := h.loop.Call(r.Context(), func() {
		g, ok := h.phases.ActiveController().(*game.Controller)
		if !ok {
			reportErr = fmt.Errorf("gameplay report: %w", model.ErrWrongPhase)
			return
		}
		if reportErr = fn(g); reportErr != nil {
			return
		}
		resp = response.Round{
			GameOver: g.GameOver(),
			WinState: string(g.Outcome()),
			Alive:    g.Lifecycle().AliveCount(),
		}
	})
	if err == nil {
		err = reportErr
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, resp)
}
