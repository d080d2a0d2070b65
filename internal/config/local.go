package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".prnbridge"
	configFileName = "config.yaml"
	dbFileName     = "watermarks.db"
)

// ConfigDir returns the prnbridge configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigFilePath returns the path to the local config file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadLocal loads configuration from the local config file.
//
// Values missing from the file take their environment defaults, and watermarks
// are kept in a SQLite database next to the file unless the file says otherwise.
func LoadLocal() (*Settings, error) {
	configPath, err := ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return loadLocalFile(configPath)
}

// LocalConfigExists checks if a local config file exists.
func LocalConfigExists() bool {
	configPath, err := ConfigFilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(configPath)
	return err == nil
}

// loadLocalFile loads settings from the YAML file at configPath.
func loadLocalFile(configPath string) (*Settings, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s (run 'prnbridge init' to create)", configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// An empty environment yields the defaults only.
	var cfg Settings
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	cfg.State.Backend = StateSQLite
	cfg.State.SQLitePath = filepath.Join(filepath.Dir(configPath), dbFileName)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.trim()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
