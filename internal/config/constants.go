package config

import (
	"os"
	"path/filepath"
)

// Default locations
const (
	// DefaultDatabasePath is used when no database is selected
	DefaultDatabasePath = "./water_levels.db"

	// DefaultConfigDir holds Drive credentials
	DefaultConfigDir = "./config"

	settingsDirName = ".water_levels"
)

// DefaultSettingsPath returns ~/.water_levels/settings.json
func DefaultSettingsPath() string {
	return filepath.Join(userHome(), settingsDirName, "settings.json")
}

// DefaultCacheDir returns ~/.water_levels/cache
func DefaultCacheDir() string {
	return filepath.Join(userHome(), settingsDirName, "cache")
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
