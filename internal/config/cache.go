package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"outpost/internal/domain"
)

const cacheFileName = "config_cache.json"

// ReadCachedConfig returns the last successfully fetched global
// configuration, or (nil, nil) when no cache exists yet.
func ReadCachedConfig(dataDir string) (*domain.GlobalConfig, error) {
	cachePath := filepath.Join(dataDir, cacheFileName)

	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg domain.GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.MCSS.MasterKeys == nil {
		cfg.MCSS.MasterKeys = make(map[string]string)
	}

	return &cfg, nil
}

// WriteCachedConfig persists the assembled configuration for the next
// startup's cache-first hydration.
func WriteCachedConfig(dataDir string, cfg domain.GlobalConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dataDir, cacheFileName), data, 0644)
}
