package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Env is the environment-level configuration. Only McssURL carries domain
// meaning: it is the default remote-control endpoint, used when no
// admin-configured value exists in the global config row.
type Env struct {
	Port     int    `env:"OUTPOST_PORT" envDefault:"23010"`
	DataDir  string `env:"OUTPOST_DATA_DIR"`
	McssURL  string `env:"OUTPOST_MCSS_URL"`
	ProxyURL string `env:"OUTPOST_PROXY_URL" envDefault:"http://127.0.0.1:23010/proxy"`
}

func LoadEnv() (*Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("error getting user config directory: %w", err)
		}
		cfg.DataDir = filepath.Join(userConfigDir, "outpost")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (e *Env) DatabasePath() string {
	return filepath.Join(e.DataDir, "outpost.db")
}

func (e *Env) AvatarsPath() string {
	return filepath.Join(e.DataDir, "avatars")
}
