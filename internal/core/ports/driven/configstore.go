package driven

import "github.com/custodia-labs/lexroute/internal/core/domain"

// SettingsStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and defaults.
type SettingsStore interface {
	// Load reads configuration from storage.
	// A missing file yields DefaultAppSettings.
	Load() (domain.AppSettings, error)

	// Save persists the configuration to storage.
	Save(settings domain.AppSettings) error

	// Path returns the configuration file path.
	Path() string
}
