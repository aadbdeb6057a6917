package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/arenasession/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportDirect, cfg.Transport)
	assert.Equal(t, StorageMemory, cfg.StorageType)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, 7*time.Second, cfg.WinDelay)
	assert.Equal(t, 2500*time.Millisecond, cfg.LoseDelay)
	assert.Equal(t, 3*time.Second, cfg.LobbyCloseDelay)
	assert.Equal(t, 20*time.Second, cfg.LoadTimeout)
	assert.Len(t, cfg.Scenario.SpawnPoints, 4)
	assert.Equal(t, model.SceneInGame, cfg.Scenario.Scenes.Game)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ARENA_TRANSPORT", "relay")
	t.Setenv("ARENA_WIN_DELAY", "1s")
	t.Setenv("ARENA_MAX_PLAYERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportRelay, cfg.Transport)
	assert.Equal(t, time.Second, cfg.WinDelay)
	assert.Equal(t, 8, cfg.MaxPlayers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unparseable duration", "ARENA_WIN_DELAY", "soon"},
		{"unknown transport", "ARENA_TRANSPORT", "carrier-pigeon"},
		{"unknown storage", "ARENA_STORAGE_TYPE", "floppy"},
		{"redis without url", "ARENA_STORAGE_TYPE", "redis"},
		{"zero players", "ARENA_MAX_PLAYERS", "0"},
		{"port out of range", "ARENA_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseScenario(t *testing.T) {
	data := []byte(`
scenes:
  game: Arena
spawn_points:
  - position: [1, 0, 2]
    yaw: 90
appearances:
  - id: 5b0f6a52-1c1e-4f0e-9a53-6f7f8f1c2a09
    name: Rogue
    graphics_ref: avatars/rogue
`)
	sc, err := ParseScenario(data)
	require.NoError(t, err)
	require.NoError(t, sc.Validate())

	assert.Equal(t, "Arena", sc.Scenes.Game)
	assert.Equal(t, model.SceneLobby, sc.Scenes.Lobby)
	require.Len(t, sc.Appearances, 1)
	assert.Equal(t, "5b0f6a52-1c1e-4f0e-9a53-6f7f8f1c2a09", sc.Appearances[0].ID.String())

	points := sc.LifecycleSpawnPoints()
	require.Len(t, points, 1)
	assert.InDelta(t, 2.0, points[0].Position.Z(), 1e-9)
	// 90 degrees about Y turns forward (-Z) to -X
	forward := points[0].Rotation.Rotate([3]float64{0, 0, -1})
	assert.InDelta(t, -1.0, forward.X(), 1e-9)
}

func TestScenarioWithoutSpawnPointsIsConfigurationError(t *testing.T) {
	sc, err := ParseScenario([]byte("appearances: []\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, sc.Validate(), model.ErrConfiguration)
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spawn_points: [{position: [0,0,0]}]\n"), 0o600))
	t.Setenv("ARENA_SCENARIO", path)

	_, err := Load()
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestDefaultsIgnoreEnvironment(t *testing.T) {
	t.Setenv("ARENA_PORT", "9999")

	cfg := Defaults()

	assert.Equal(t, 7777, cfg.Port)
	assert.NoError(t, cfg.Validate())
}
