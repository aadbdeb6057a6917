package menu

import (
	"log/slog"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// MainMenu is the idle phase before a lobby exists. It survives scene
// reloads of the menu itself.
type MainMenu struct {
	logger *slog.Logger
}

var _ phase.Controller = (*MainMenu)(nil)

// NewMainMenu creates the main-menu phase
func NewMainMenu(logger *slog.Logger) *MainMenu {
	return &MainMenu{logger: logger.With(slog.String("component", "main_menu"))}
}

func (m *MainMenu) Phase() model.Phase { return model.PhaseMainMenu }

func (m *MainMenu) Persists() bool { return true }

func (m *MainMenu) Activate() error {
	m.logger.Info("main menu active")
	return nil
}

func (m *MainMenu) Deactivate() {}

// PostGame shows the last outcome until the players go again
type PostGame struct {
	state      *PersistentGameState
	scenes     phase.SceneLoader
	lobbyScene string
	logger     *slog.Logger
}

var _ phase.Controller = (*PostGame)(nil)

// NewPostGame creates the post-game phase. PlayAgain loads lobbyScene.
func NewPostGame(state *PersistentGameState, scenes phase.SceneLoader, lobbyScene string, logger *slog.Logger) *PostGame {
	return &PostGame{
		state:      state,
		scenes:     scenes,
		lobbyScene: lobbyScene,
		logger:     logger.With(slog.String("component", "post_game")),
	}
}

func (p *PostGame) Phase() model.Phase { return model.PhasePostGame }

func (p *PostGame) Persists() bool { return false }

func (p *PostGame) Activate() error {
	p.logger.Info("post game active", slog.String("win_state", string(p.state.WinState())))
	return nil
}

func (p *PostGame) Deactivate() {}

// WinState returns the outcome being shown
func (p *PostGame) WinState() model.WinState {
	return p.state.WinState()
}

// PlayAgain returns everyone to the lobby
func (p *PostGame) PlayAgain() error {
	p.logger.Info("returning to lobby")
	return p.scenes.LoadScene(p.lobbyScene)
}
