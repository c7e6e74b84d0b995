package app

import (
	"errors"
	"fmt"
	"net/url"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath   string // hcl scene snapshot
	Target      string // animation set to augment, empty means the scene's current set
	BatteryPath string // hcl battery, empty means the built-in battery
	OutPath     string // where to write the updated scene, empty disables export
	ConsoleURL  string // socket.io console, empty disables forwarding

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenePath == "" {
		return nil, errors.New("ScenePath is a required configuration field and cannot be empty")
	}
	if cfg.OutPath != "" && cfg.OutPath == cfg.ScenePath {
		return nil, errors.New("OutPath must not overwrite the input scene")
	}
	if cfg.ConsoleURL != "" {
		u, err := url.Parse(cfg.ConsoleURL)
		if err != nil {
			return nil, fmt.Errorf("invalid console URL: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return nil, fmt.Errorf("invalid console URL %q: scheme must be http, https, ws or wss", cfg.ConsoleURL)
		}
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
