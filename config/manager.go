package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sethvargo/go-password/password"
	"gopkg.in/yaml.v3"
)

// Manager loads and persists Settings from a YAML file. Environment
// variables override secrets so deployments never have to write them to
// disk: CINELIST_TMDB_API_KEY and CINELIST_AUTH_SECRET.
type Manager struct {
	path string

	mu       sync.RWMutex
	settings *Settings
	fromEnv  envOverrides
}

// envOverrides remembers which fields came from the environment and what the
// file held before the override. Save writes the file values back so
// env-sourced secrets never land on disk.
type envOverrides struct {
	apiKey     bool
	authSecret bool
	dbPath     bool

	fileAPIKey string
	fileSecret string
	fileDBPath string
}

// NewManager creates a manager for the settings file at path. Nothing is
// read until Load is called.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the current settings, reading the file on first use. A
// missing file yields defaults rather than an error so a fresh install can
// start without any configuration step.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	if m.settings != nil {
		defer m.mu.RUnlock()
		return m.settings, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings != nil {
		return m.settings, nil
	}

	settings := DefaultSettings()
	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// keep defaults
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	}

	m.fromEnv = applyEnvOverrides(settings)

	m.settings = settings
	return settings, nil
}

// Save writes settings to disk and makes them the current in-memory copy.
func (m *Manager) Save(settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	onDisk := *settings
	if m.fromEnv.apiKey {
		onDisk.TMDB.APIKey = m.fromEnv.fileAPIKey
	}
	if m.fromEnv.authSecret {
		onDisk.Auth.Secret = m.fromEnv.fileSecret
	}
	if m.fromEnv.dbPath {
		onDisk.Database.Path = m.fromEnv.fileDBPath
	}

	data, err := yaml.Marshal(&onDisk)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	m.settings = settings
	return nil
}

// EnsureAuthSecret returns the configured signing secret, generating and
// persisting one on first run when neither the file nor the environment
// provides it.
func (m *Manager) EnsureAuthSecret() (string, error) {
	settings, err := m.Load()
	if err != nil {
		return "", err
	}
	if settings.Auth.Secret != "" {
		return settings.Auth.Secret, nil
	}

	secret, err := password.Generate(64, 16, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}

	settings.Auth.Secret = secret
	if err := m.Save(settings); err != nil {
		return "", err
	}
	return secret, nil
}

func applyEnvOverrides(settings *Settings) envOverrides {
	var ov envOverrides
	if v := os.Getenv("CINELIST_TMDB_API_KEY"); v != "" {
		ov.apiKey, ov.fileAPIKey = true, settings.TMDB.APIKey
		settings.TMDB.APIKey = v
	}
	if v := os.Getenv("CINELIST_AUTH_SECRET"); v != "" {
		ov.authSecret, ov.fileSecret = true, settings.Auth.Secret
		settings.Auth.Secret = v
	}
	if v := os.Getenv("CINELIST_DB_PATH"); v != "" {
		ov.dbPath, ov.fileDBPath = true, settings.Database.Path
		settings.Database.Path = v
	}
	return ov
}
