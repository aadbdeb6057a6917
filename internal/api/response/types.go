package response

import (
	"time"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
)

// Health is the body of GET /health
type Health struct {
	Status string `json:"status"`
	Role   string `json:"role"`
	Peers  int    `json:"peers"`
}

// Session represents a session record in API responses
type Session struct {
	Identity            string     `json:"identity"`
	ClientID            uint64     `json:"client_id"`
	Name                string     `json:"name"`
	PlayerNumber        int        `json:"player_number"`
	Connected           bool       `json:"connected"`
	Alive               bool       `json:"alive"`
	HasCharacterSpawned bool       `json:"has_character_spawned"`
	AppearanceID        string     `json:"appearance_id,omitempty"`
	Position            [3]float64 `json:"position"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SessionFromModel converts a model.SessionRecord
func SessionFromModel(r model.SessionRecord) Session {
	s := Session{
		Identity:            string(r.PlayerIdentity),
		ClientID:            uint64(r.ClientID),
		Name:                r.PlayerName,
		PlayerNumber:        r.PlayerNumber,
		Connected:           r.IsConnected,
		Alive:               r.Alive,
		HasCharacterSpawned: r.HasCharacterSpawned,
		Position:            r.PlayerPosition,
		UpdatedAt:           r.UpdatedAt,
	}
	if !r.AvatarAppearanceID.IsNil() {
		s.AppearanceID = r.AvatarAppearanceID.String()
	}
	return s
}

// SessionsFromModel converts a registry snapshot
func SessionsFromModel(records []model.SessionRecord) []Session {
	out := make([]Session, len(records))
	for i, r := range records {
		out[i] = SessionFromModel(r)
	}
	return out
}

// Phase describes the active phase and scene
type Phase struct {
	Role    string  `json:"role"`
	Phase   *string `json:"phase"`
	Scene   string  `json:"scene"`
	Loading bool    `json:"loading"`
}

// ClientProgress is one client's loading progress
type ClientProgress struct {
	ClientID uint64  `json:"client_id"`
	Progress float64 `json:"progress"`
}

// Loading is the body of GET /loading
type Loading struct {
	Scene     string           `json:"scene"`
	Loading   bool             `json:"loading"`
	AllLoaded bool             `json:"all_loaded"`
	Clients   []ClientProgress `json:"clients"`
}

// Lobby is the state of the lobby phase and its matchmaking session
type Lobby struct {
	Active      bool              `json:"active"`
	Closing     bool              `json:"closing"`
	Closed      bool              `json:"closed"`
	Matchmaking *MatchmakingLobby `json:"matchmaking,omitempty"`
}

// MatchmakingLobby is the advertised matchmaking session
type MatchmakingLobby struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	Locked     bool   `json:"locked"`
	JoinCode   string `json:"join_code,omitempty"`
}

// MatchmakingLobbyFromModel converts model.LobbyInfo; nil stays nil
func MatchmakingLobbyFromModel(l *model.LobbyInfo) *MatchmakingLobby {
	if l == nil {
		return nil
	}
	return &MatchmakingLobby{
		Code:       string(l.Code),
		Name:       l.Name,
		MaxPlayers: l.MaxPlayers,
		Locked:     l.Locked,
		JoinCode:   string(l.RelayJoinCode()),
	}
}

// StartGame is the body of a successful POST /lobby/start
type StartGame struct {
	Closing    bool   `json:"closing"`
	CloseDelay string `json:"close_delay"`
}

// PostGame is the outcome shown after a round
type PostGame struct {
	WinState string `json:"win_state"`
}

// Appearance represents a catalog entry
type Appearance struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GraphicsRef string `json:"graphics_ref"`
}

// Avatar represents a spawned avatar
type Avatar struct {
	ClientID     uint64     `json:"client_id"`
	Name         string     `json:"name"`
	AppearanceID string     `json:"appearance_id"`
	Position     [3]float64 `json:"position"`
	Alive        bool       `json:"alive"`
}

// Avatars is the body of GET /avatars
type Avatars struct {
	Phase       *string      `json:"phase"`
	Spawned     []Avatar     `json:"spawned"`
	Appearances []Appearance `json:"appearances"`
}

// AvatarsFromModel converts the active phase's avatars and the catalog
func AvatarsFromModel(phase *string, states []lifecycle.AvatarState, catalog []avatar.Appearance) Avatars {
	out := Avatars{
		Phase:       phase,
		Spawned:     make([]Avatar, len(states)),
		Appearances: make([]Appearance, len(catalog)),
	}
	for i, a := range states {
		out.Spawned[i] = Avatar{
			ClientID:     uint64(a.ClientID),
			Name:         a.Name,
			AppearanceID: a.AppearanceID.String(),
			Position:     a.Position,
			Alive:        a.Alive,
		}
	}
	for i, a := range catalog {
		out.Appearances[i] = Appearance{ID: a.ID.String(), Name: a.Name, GraphicsRef: a.GraphicsRef}
	}
	return out
}

// Account represents a registered account
type Account struct {
	Identity  string    `json:"identity"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts model.Account without its password hash
func AccountFromModel(a *model.Account) Account {
	return Account{
		Identity:  string(a.Identity),
		Username:  a.Username,
		CreatedAt: a.CreatedAt,
	}
}

// Round is the state of the current match after a gameplay report
type Round struct {
	GameOver bool   `json:"game_over"`
	WinState string `json:"win_state"`
	Alive    int    `json:"alive"`
}
