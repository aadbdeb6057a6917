// Package config loads process settings from the environment and the
// scenario file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Transport methods
const (
	TransportDirect = "direct"
	TransportRelay  = "relay"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config is the full process configuration
type Config struct {
	Env
	Scenario Scenario
}

// Env holds the settings read from ARENA_* variables
type Env struct {
	LogLevel string `env:"ARENA_LOG_LEVEL" envDefault:"info"`

	// Admin API
	APIHost string `env:"ARENA_API_HOST" envDefault:"0.0.0.0"`
	APIPort int    `env:"ARENA_API_PORT" envDefault:"8080"`

	// Transport
	Transport  string `env:"ARENA_TRANSPORT" envDefault:"direct"`
	Address    string `env:"ARENA_ADDRESS" envDefault:"0.0.0.0"`
	Port       int    `env:"ARENA_PORT" envDefault:"7777"`
	MaxPlayers int    `env:"ARENA_MAX_PLAYERS" envDefault:"4"`

	// Matchmaking
	LobbyName       string        `env:"ARENA_LOBBY_NAME" envDefault:"arena"`
	RelayEndpoint   string        `env:"ARENA_RELAY_ENDPOINT" envDefault:"127.0.0.1:7777"`
	Region          string        `env:"ARENA_REGION" envDefault:"local"`
	HeartbeatPeriod time.Duration `env:"ARENA_HEARTBEAT_PERIOD" envDefault:"15s"`

	// Storage
	StorageType string `env:"ARENA_STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"ARENA_REDIS_URL"`

	// Identity
	DisplayName string `env:"ARENA_DISPLAY_NAME"`
	Profile     string `env:"ARENA_PROFILE"`
	PrefsPath   string `env:"ARENA_PREFS_PATH"`

	// Timings
	LoadTimeout        time.Duration `env:"ARENA_LOAD_TIMEOUT" envDefault:"20s"`
	LobbyCloseDelay    time.Duration `env:"ARENA_LOBBY_CLOSE_DELAY" envDefault:"3s"`
	WinDelay           time.Duration `env:"ARENA_WIN_DELAY" envDefault:"7s"`
	LoseDelay          time.Duration `env:"ARENA_LOSE_DELAY" envDefault:"2500ms"`
	KilledDestroyDelay time.Duration `env:"ARENA_KILLED_DESTROY_DELAY" envDefault:"3s"`

	// Movement
	MoveStep float64 `env:"ARENA_MOVE_STEP" envDefault:"0.25"`

	// ScenarioPath points at a YAML scenario; empty uses the built-in one
	ScenarioPath string `env:"ARENA_SCENARIO"`
}

// Load parses the environment and the scenario it names
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg.Env); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ScenarioPath == "" {
		cfg.Scenario = DefaultScenario()
	} else {
		sc, err := LoadScenario(cfg.ScenarioPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Scenario = sc
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot
func (c Config) Validate() error {
	switch c.Transport {
	case TransportDirect, TransportRelay:
	default:
		return fmt.Errorf("ARENA_TRANSPORT must be %q or %q, got %q", TransportDirect, TransportRelay, c.Transport)
	}
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("ARENA_REDIS_URL required when ARENA_STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("ARENA_STORAGE_TYPE must be %q or %q, got %q", StorageMemory, StorageRedis, c.StorageType)
	}
	if c.MaxPlayers < 1 {
		return fmt.Errorf("ARENA_MAX_PLAYERS must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("ARENA_PORT out of range: %d", c.Port)
	}
	return c.Scenario.Validate()
}

// SlogLevel maps LogLevel onto slog, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults returns every default setting with the built-in scenario,
// ignoring the process environment
func Defaults() Config {
	var cfg Config
	// defaults alone always parse
	_ = env.ParseWithOptions(&cfg.Env, env.Options{Environment: map[string]string{}})
	cfg.Scenario = DefaultScenario()
	return cfg
}
