package cli

import (
	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string `env:"ARENACTL_SERVER" envDefault:"http://localhost:8080"`
	Output    string `env:"ARENACTL_OUTPUT" envDefault:"text"`
	Verbose   bool   `env:"ARENACTL_VERBOSE"`
}

// DefaultConfig returns a Config seeded from the environment
func DefaultConfig() *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}
	return c
}
