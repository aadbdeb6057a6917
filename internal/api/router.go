package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/arenasession/internal/api/handler"
	"github.com/mcoot/arenasession/internal/api/middleware"
	"github.com/mcoot/arenasession/internal/scene"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/identity"
	"github.com/mcoot/arenasession/internal/services/loading"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
	"github.com/mcoot/arenasession/internal/services/phase"
	"github.com/mcoot/arenasession/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger *slog.Logger
	// Loop serializes reads of authority state with the simulation
	Loop        handler.Runner
	Sessions    *session.Registry
	Phases      *phase.Registry
	Scenes      *scene.Manager
	Loading     *loading.Coordinator
	Matchmaking matchmaking.LobbyTracker
	Catalog     *avatar.Catalog
	Identity    *identity.Service
	Peers       handler.PeerCounter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	healthHandler := handler.NewHealthHandler(cfg.Phases, cfg.Peers)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions)
	phaseHandler := handler.NewPhaseHandler(cfg.Loop, cfg.Phases, cfg.Scenes, cfg.Loading)
	lobbyHandler := handler.NewLobbyHandler(cfg.Loop, cfg.Phases, cfg.Matchmaking)
	avatarHandler := handler.NewAvatarHandler(cfg.Loop, cfg.Phases, cfg.Catalog)
	postGameHandler := handler.NewPostGameHandler(cfg.Loop, cfg.Phases)
	gameHandler := handler.NewGameHandler(cfg.Loop, cfg.Phases)
	accountHandler := handler.NewAccountHandler(cfg.Identity)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{identity}", sessionHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/phase", phaseHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/loading", phaseHandler.Loading).Methods(http.MethodGet)

	api.HandleFunc("/lobby", lobbyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/lobby/start", lobbyHandler.Start).Methods(http.MethodPost)

	api.HandleFunc("/postgame", postGameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/postgame/play-again", postGameHandler.PlayAgain).Methods(http.MethodPost)

	api.HandleFunc("/game/objective", gameHandler.Objective).Methods(http.MethodPost)

	api.HandleFunc("/avatars", avatarHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/avatars/{client_id}/hit", gameHandler.Hit).Methods(http.MethodPost)

	api.HandleFunc("/accounts", accountHandler.Register).Methods(http.MethodPost)

	return r
}
