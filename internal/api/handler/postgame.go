package handler

import (
	"fmt"
	"net/http"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/menu"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// PostGameHandler shows the last outcome and sends players back to the lobby
type PostGameHandler struct {
	loop   Runner
	phases *phase.Registry
}

// NewPostGameHandler creates a new post-game handler
func NewPostGameHandler(loop Runner, phases *phase.Registry) *PostGameHandler {
	return &PostGameHandler{loop: loop, phases: phases}
}

// Get handles GET /api/v1/postgame
func (h *PostGameHandler) Get(w http.ResponseWriter, r *http.Request) {
	var (
		resp   response.PostGame
		active bool
	)
	err := h.loop.Call(r.Context(), func() {
		if p, ok := h.phases.ActiveController().(*menu.PostGame); ok {
			active = true
			resp.WinState = string(p.WinState())
		}
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	if !active {
		WriteError(w, fmt.Errorf("post game: %w", model.ErrWrongPhase))
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

// PlayAgain handles POST /api/v1/postgame/play-again
func (h *PostGameHandler) PlayAgain(w http.ResponseWriter, r *http.Request) {
	var playErr error
	err := h.loop.Call(r.Context(), func() {
		p, ok := h.phases.ActiveController().(*menu.PostGame)
		if !ok {
			playErr = fmt.Errorf("play again: %w", model.ErrWrongPhase)
			return
		}
		playErr = p.PlayAgain()
	})
	if err == nil {
		err = playErr
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
