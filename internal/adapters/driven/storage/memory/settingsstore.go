package memory

import (
	"sync"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore keeps settings in memory. Used when no config file
// should be touched.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *domain.AppSettings
}

// NewSettingsStore creates a store that returns defaults until Save is called.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

// Load returns the saved settings or the defaults.
func (s *SettingsStore) Load() (domain.AppSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return domain.DefaultAppSettings(), nil
	}
	out := *s.settings
	out.Decomposer.ActionVerbs = append([]string(nil), s.settings.Decomposer.ActionVerbs...)
	return out, nil
}

// Save replaces the stored settings.
func (s *SettingsStore) Save(settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.Decomposer.ActionVerbs = append([]string(nil), settings.Decomposer.ActionVerbs...)
	s.settings = &settings
	return nil
}

// Path returns an empty string; nothing is written to disk.
func (s *SettingsStore) Path() string {
	return ""
}
