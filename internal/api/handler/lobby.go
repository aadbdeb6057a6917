package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mcoot/arenasession/internal/api/request"
	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/lobby"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// LobbyHandler handles the lobby phase endpoints
type LobbyHandler struct {
	loop        Runner
	phases      *phase.Registry
	matchmaking matchmaking.LobbyTracker
}

// NewLobbyHandler creates a new lobby handler; matchmaking may be nil
func NewLobbyHandler(loop Runner, phases *phase.Registry, mm matchmaking.LobbyTracker) *LobbyHandler {
	return &LobbyHandler{loop: loop, phases: phases, matchmaking: mm}
}

// Get handles GET /api/v1/lobby
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp response.Lobby
	err := h.loop.Call(r.Context(), func() {
		if c, ok := h.phases.ActiveController().(*lobby.Controller); ok {
			resp.Active = true
			resp.Closing = c.Closing()
			resp.Closed = c.IsLobbyClosed.Value()
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	if h.matchmaking != nil {
		resp.Matchmaking = response.MatchmakingLobbyFromModel(h.matchmaking.CurrentLobby())
	}

	response.JSON(w, http.StatusOK, resp)
}

// Start handles POST /api/v1/lobby/start
func (h *LobbyHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req request.StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	var (
		ctl     *lobby.Controller
		spawned int
	)
	err := h.loop.Call(r.Context(), func() {
		c, ok := h.phases.ActiveController().(*lobby.Controller)
		if !ok {
			return
		}
		ctl = c
		spawned = len(c.Lifecycle().Avatars())
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	if ctl == nil {
		WriteError(w, fmt.Errorf("start game: %w", model.ErrWrongPhase))
		return
	}
	if spawned == 0 && !req.Force {
		WriteError(w, model.ErrNoPlayers)
		return
	}

	if err := ctl.StartGame(r.Context()); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, response.StartGame{
		Closing:    true,
		CloseDelay: ctl.CloseDelay().String(),
	})
}
