package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
)

// Scenario is the content a session is played with
type Scenario struct {
	Scenes      Scenes              `yaml:"scenes"`
	SpawnPoints []SpawnPoint        `yaml:"spawn_points"`
	Appearances []avatar.Appearance `yaml:"appearances"`
}

// Scenes names the scene for each phase
type Scenes struct {
	MainMenu string `yaml:"main_menu"`
	Lobby    string `yaml:"lobby"`
	Game     string `yaml:"game"`
	PostGame string `yaml:"post_game"`
}

// SpawnPoint is a position plus a heading in degrees about the up axis
type SpawnPoint struct {
	Position [3]float64 `yaml:"position"`
	Yaw      float64    `yaml:"yaw"`
}

// LoadScenario reads a YAML scenario, filling unnamed scenes with defaults
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML scenario content
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	sc.Scenes = sc.Scenes.withDefaults()
	return sc, nil
}

// Validate rejects scenarios no round can be played with
func (s Scenario) Validate() error {
	if len(s.SpawnPoints) == 0 {
		return &model.ConfigurationError{What: "scenario has no spawn points"}
	}
	if len(s.Appearances) == 0 {
		return &model.ConfigurationError{What: "scenario has no appearances"}
	}
	return nil
}

// LifecycleSpawnPoints converts spawn points to avatar transforms
func (s Scenario) LifecycleSpawnPoints() []lifecycle.SpawnPoint {
	points := make([]lifecycle.SpawnPoint, 0, len(s.SpawnPoints))
	for _, p := range s.SpawnPoints {
		points = append(points, lifecycle.SpawnPoint{
			Position: mgl64.Vec3(p.Position),
			Rotation: mgl64.QuatRotate(mgl64.DegToRad(p.Yaw), lifecycle.Up),
		})
	}
	return points
}

func (s Scenes) withDefaults() Scenes {
	if s.MainMenu == "" {
		s.MainMenu = model.SceneMainMenu
	}
	if s.Lobby == "" {
		s.Lobby = model.SceneLobby
	}
	if s.Game == "" {
		s.Game = model.SceneInGame
	}
	if s.PostGame == "" {
		s.PostGame = model.ScenePostGame
	}
	return s
}

// DefaultScenario is a four-corner arena with three looks
func DefaultScenario() Scenario {
	return Scenario{
		Scenes: Scenes{}.withDefaults(),
		SpawnPoints: []SpawnPoint{
			{Position: [3]float64{-10, 0, -10}, Yaw: 45},
			{Position: [3]float64{10, 0, -10}, Yaw: -45},
			{Position: [3]float64{10, 0, 10}, Yaw: -135},
			{Position: [3]float64{-10, 0, 10}, Yaw: 135},
		},
		Appearances: []avatar.Appearance{
			{ID: mustAppearanceID("5b0f6a52-1c1e-4f0e-9a53-6f7f8f1c2a01"), Name: "Knight", GraphicsRef: "avatars/knight"},
			{ID: mustAppearanceID("5b0f6a52-1c1e-4f0e-9a53-6f7f8f1c2a02"), Name: "Ranger", GraphicsRef: "avatars/ranger"},
			{ID: mustAppearanceID("5b0f6a52-1c1e-4f0e-9a53-6f7f8f1c2a03"), Name: "Mage", GraphicsRef: "avatars/mage"},
		},
	}
}

func mustAppearanceID(s string) model.AppearanceID {
	id, err := model.ParseAppearanceID(s)
	if err != nil {
		panic(err)
	}
	return id
}
