// internal/config/config.go
//
// Environment-backed configuration. Parsed once at boot into a typed struct;
// a malformed environment fails the process immediately rather than surfacing
// later as odd runtime behavior.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// Port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"5175"`

	// DBPath is the SQLite database file location.
	DBPath string `env:"DB_PATH" envDefault:"./data/app.db"`

	// LogLevel is a zerolog level name (trace/debug/info/warn/error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ClientOrigin is the single origin allowed by CORS.
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	// AllowEmptyStart permits starting a session with no players.
	// Off by default: a session needs at least one player to start.
	AllowEmptyStart bool `env:"ALLOW_EMPTY_START" envDefault:"false"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
