package model

// Phase is one mutually exclusive stage of the game flow
type Phase string

const (
	PhaseMainMenu Phase = "main_menu"
	PhaseLobby    Phase = "lobby"
	PhaseInGame   Phase = "in_game"
	PhasePostGame Phase = "post_game"
)

// Role distinguishes the hosting process from a participating client
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// LifeState is the survival status of an avatar
type LifeState string

const (
	LifeStateAlive LifeState = "alive"
	LifeStateDead  LifeState = "dead"
)

// WinState is the outcome of the last round
type WinState string

const (
	WinStateInvalid WinState = "invalid"
	WinStateWin     WinState = "win"
	WinStateLoss    WinState = "loss"
)

// LoadMode mirrors how a scene was loaded
type LoadMode string

const (
	LoadModeSingle   LoadMode = "single"
	LoadModeAdditive LoadMode = "additive"
)

// Scene names of the built-in game flow
const (
	SceneMainMenu = "MainMenu"
	SceneLobby    = "Lobby"
	SceneInGame   = "InGame"
	ScenePostGame = "PostGame"
)

// Notification is a server-to-client signal without payload
type Notification string

const (
	NotifyConnectedSound    Notification = "connected_sound"
	NotifyStopLoadingScreen Notification = "stop_loading_screen"
)
