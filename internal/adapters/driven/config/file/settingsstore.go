package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// DefaultDirName is the directory under the user's home that holds the
// configuration file.
const DefaultDirName = ".lexroute"

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "config.toml"

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore is a file-based implementation of driven.SettingsStore using TOML.
type SettingsStore struct {
	mu       sync.RWMutex
	filePath string
	getenv   func(string) string
}

// NewSettingsStore creates a TOML-based settings store.
// If path is empty, defaults to ~/.lexroute/config.toml.
func NewSettingsStore(path string) (*SettingsStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, DefaultDirName, ConfigFileName)
	}
	return &SettingsStore{filePath: path, getenv: os.Getenv}, nil
}

// Load reads settings from the TOML file. Keys missing from the file keep
// their defaults; a missing file yields the defaults. Unknown keys are
// rejected so typos do not pass silently. API keys are resolved from the
// environment variables the file names.
func (s *SettingsStore) Load() (domain.AppSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := domain.DefaultAppSettings()

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file yet, run on defaults
	case err != nil:
		return settings, fmt.Errorf("reading %s: %w", s.filePath, err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&settings); err != nil {
			return domain.DefaultAppSettings(), fmt.Errorf("%w: %s: %s", domain.ErrMisconfigured, s.filePath, describe(err))
		}
	}

	s.resolveSecrets(&settings)
	return settings, nil
}

// Save persists settings to the TOML file. API keys are never written.
func (s *SettingsStore) Save(settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0o600)
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

func (s *SettingsStore) resolveSecrets(settings *domain.AppSettings) {
	if env := settings.Embedding.APIKeyEnv; env != "" {
		settings.Embedding.APIKey = s.getenv(env)
	}
	if env := settings.LLM.APIKeyEnv; env != "" {
		settings.LLM.APIKey = s.getenv(env)
	}
}

// describe renders go-toml decode errors with their position.
func describe(err error) string {
	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		row, col := decErr.Position()
		return fmt.Sprintf("line %d column %d: %s", row, col, decErr.Error())
	}
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return strict.String()
	}
	return err.Error()
}
