package factory

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/arenasession/internal/api"
)

// APIRouter builds the admin API over this app's components
func (a *App) APIRouter(logger *slog.Logger) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Loop:        a.Loop,
		Sessions:    a.Sessions,
		Phases:      a.Phases,
		Scenes:      a.Scenes,
		Loading:     a.Loading,
		Matchmaking: a.Matchmaking,
		Catalog:     a.Catalog,
		Identity:    a.Identity,
		Peers:       a.Transport,
	})
}

// APIServerConfig derives the admin listener settings from the environment
func (a *App) APIServerConfig() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = a.Settings.APIHost
	cfg.Port = a.Settings.APIPort
	return cfg
}
