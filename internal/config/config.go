package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/tictac/internal/constants"
)

// Server holds all configuration for the match server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Limits
	MaxClients int `yaml:"max_clients"`

	// Logging: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// DefaultServer returns Server config with sensible defaults. The port
// has no default: it must come from the config file or the -p flag.
func DefaultServer() Server {
	return Server{
		BindAddress: "0.0.0.0",
		MaxClients:  constants.MaxClients,
		LogLevel:    "info",
	}
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the config describes a runnable server.
func (c Server) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("invalid max_clients: %d", c.MaxClients)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog's.
func (c Server) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
