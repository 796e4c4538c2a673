// Package config loads process configuration from the environment and the
// per-user settings file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Paths
		HTTP
		Telegram
		Schedule
		NWS
		MasterBaro
		Auth
		Global
	}

	Database struct {
		Path     string
		PoolSize int
	}
	Paths struct {
		ConfigDir    string // Drive credentials and OAuth token
		SettingsPath string
	}
	HTTP struct {
		Port     int32
		Host     string
		APIToken string // Bearer token for write endpoints; empty disables them
	}
	Telegram struct {
		Token string
	}
	Schedule struct {
		NWSScrape  string // Cron format
		MasterBaro string
		Statistics string
		SyncCheck  string
	}
	NWS struct {
		Station  string
		Timezone string
		BaseURL  string
	}
	MasterBaro struct {
		Serials     []string
		Window      time.Duration // Look-back used by scheduled rebuilds
		MinReadings int
	}
	Auth struct {
		BcryptCost int
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

// NewConfig reads configuration from the environment, after loading .env if present
func NewConfig() *Config {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("db_pool_size", 5)
	v.SetDefault("config_dir", DefaultConfigDir)
	v.SetDefault("settings_path", DefaultSettingsPath())
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("api_token", "")
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("schedule_nws_scrape", "5 * * * *")    // Hourly, after NWS publishes
	v.SetDefault("schedule_master_baro", "30 2 * * *")  // Nightly
	v.SetDefault("schedule_statistics", "0 3 * * *")    // Nightly, after master baro
	v.SetDefault("schedule_sync_check", "*/30 * * * *") // Every 30 minutes
	v.SetDefault("nws_station", "KMEM")
	v.SetDefault("nws_timezone", "America/Chicago")
	v.SetDefault("nws_base_url", "")
	v.SetDefault("master_baro_serials", "")
	v.SetDefault("master_baro_window", "48h")
	v.SetDefault("master_baro_min_readings", 2)
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	return &Config{
		Database: Database{
			Path:     v.GetString("DATABASE_PATH"),
			PoolSize: v.GetInt("DB_POOL_SIZE"),
		},
		Paths: Paths{
			ConfigDir:    v.GetString("CONFIG_DIR"),
			SettingsPath: v.GetString("SETTINGS_PATH"),
		},
		HTTP: HTTP{
			Port:     v.GetInt32("PORT"),
			Host:     v.GetString("HOST"),
			APIToken: v.GetString("API_TOKEN"),
		},
		Telegram: Telegram{
			Token: v.GetString("TELEGRAM_BOT_TOKEN"),
		},
		Schedule: Schedule{
			NWSScrape:  v.GetString("SCHEDULE_NWS_SCRAPE"),
			MasterBaro: v.GetString("SCHEDULE_MASTER_BARO"),
			Statistics: v.GetString("SCHEDULE_STATISTICS"),
			SyncCheck:  v.GetString("SCHEDULE_SYNC_CHECK"),
		},
		NWS: NWS{
			Station:  strings.ToUpper(v.GetString("NWS_STATION")),
			Timezone: v.GetString("NWS_TIMEZONE"),
			BaseURL:  v.GetString("NWS_BASE_URL"),
		},
		MasterBaro: MasterBaro{
			Serials:     splitList(v.GetString("MASTER_BARO_SERIALS")),
			Window:      v.GetDuration("MASTER_BARO_WINDOW"),
			MinReadings: v.GetInt("MASTER_BARO_MIN_READINGS"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("AUTH_BCRYPT_COST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.Database.PoolSize < 1 {
		return fmt.Errorf("DB_POOL_SIZE must be at least 1, got %d", c.Database.PoolSize)
	}
	schedules := map[string]string{
		"SCHEDULE_NWS_SCRAPE":  c.Schedule.NWSScrape,
		"SCHEDULE_MASTER_BARO": c.Schedule.MasterBaro,
		"SCHEDULE_STATISTICS":  c.Schedule.Statistics,
		"SCHEDULE_SYNC_CHECK":  c.Schedule.SyncCheck,
	}
	for name, spec := range schedules {
		if spec == "" {
			continue // Disabled
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MasterBaro.MinReadings < 1 {
		return fmt.Errorf("MASTER_BARO_MIN_READINGS must be at least 1, got %d", c.MasterBaro.MinReadings)
	}
	if c.MasterBaro.Window <= 0 {
		return fmt.Errorf("MASTER_BARO_WINDOW must be positive, got %s", c.MasterBaro.Window)
	}
	return nil
}

// Location returns the time zone used for local timestamps
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.NWS.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid NWS_TIMEZONE %q: %w", c.NWS.Timezone, err)
	}
	return loc, nil
}

// CredentialsPath resolves a credentials file name against the config directory
func (c *Config) CredentialsPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.ConfigDir, name)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
