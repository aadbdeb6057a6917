package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/arenasession/internal/api/request"
	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/services/identity"
)

// AccountHandler registers accounts players can sign in with from any machine
type AccountHandler struct {
	identity *identity.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(identity *identity.Service) *AccountHandler {
	return &AccountHandler{identity: identity}
}

// Register handles POST /api/v1/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if len(req.Password) < 8 {
		WriteError(w, NewInvalidRequestError("password must be at least 8 characters"))
		return
	}

	account, err := h.identity.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AccountFromModel(account))
}
