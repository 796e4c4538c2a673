package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings are the per-user choices persisted in settings.json
type Settings struct {
	UseCloud        bool   `mapstructure:"use_cloud"`
	DriveFolderID   string `mapstructure:"drive_folder_id"`  // Folder holding shared databases
	CredentialsFile string `mapstructure:"credentials_file"` // Relative to CONFIG_DIR
	ServiceAccount  bool   `mapstructure:"service_account"`
	TokenFile       string `mapstructure:"token_file"`
	CacheDir        string `mapstructure:"cache_dir"`
	LastDatabase    string `mapstructure:"last_database"`
}

func settingsViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("use_cloud", false)
	v.SetDefault("drive_folder_id", "")
	v.SetDefault("credentials_file", "credentials.json")
	v.SetDefault("service_account", false)
	v.SetDefault("token_file", "token.json")
	v.SetDefault("cache_dir", DefaultCacheDir())
	v.SetDefault("last_database", "")
	return v
}

// LoadSettings reads settings from path. A missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	v := settingsViper(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat settings %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return &s, nil
}

// SaveSettings validates s and writes it to path
func SaveSettings(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	v := settingsViper(path)
	v.Set("use_cloud", s.UseCloud)
	v.Set("drive_folder_id", s.DriveFolderID)
	v.Set("credentials_file", s.CredentialsFile)
	v.Set("service_account", s.ServiceAccount)
	v.Set("token_file", s.TokenFile)
	v.Set("cache_dir", s.CacheDir)
	v.Set("last_database", s.LastDatabase)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings that cannot be used
func (s *Settings) Validate() error {
	if s.CacheDir == "" {
		return errors.New("cache_dir must not be empty")
	}
	if !s.UseCloud {
		return nil
	}
	if s.DriveFolderID == "" {
		return errors.New("drive_folder_id is required when use_cloud is set")
	}
	if s.CredentialsFile == "" {
		return errors.New("credentials_file is required when use_cloud is set")
	}
	if !s.ServiceAccount && s.TokenFile == "" {
		return errors.New("token_file is required for OAuth credentials")
	}
	return nil
}
