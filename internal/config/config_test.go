package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, "KMEM", cfg.NWS.Station)
	assert.Equal(t, 48*time.Hour, cfg.MasterBaro.Window)
	assert.Equal(t, 2, cfg.MasterBaro.MinReadings)
	assert.Empty(t, cfg.MasterBaro.Serials)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/data/wells.db")
	t.Setenv("PORT", "9090")
	t.Setenv("NWS_STATION", "kolv")
	t.Setenv("MASTER_BARO_SERIALS", "2056234, 2056235,2056236")
	t.Setenv("MASTER_BARO_WINDOW", "72h")
	t.Setenv("MASTER_BARO_MIN_READINGS", "3")

	cfg := NewConfig()
	assert.Equal(t, "/data/wells.db", cfg.Database.Path)
	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, "KOLV", cfg.NWS.Station)
	assert.Equal(t, []string{"2056234", "2056235", "2056236"}, cfg.MasterBaro.Serials)
	assert.Equal(t, 72*time.Hour, cfg.MasterBaro.Window)
	assert.Equal(t, 3, cfg.MasterBaro.MinReadings)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad cron", func(c *Config) { c.Schedule.MasterBaro = "every night" }, "SCHEDULE_MASTER_BARO"},
		{"disabled schedule", func(c *Config) { c.Schedule.SyncCheck = "" }, ""},
		{"bad timezone", func(c *Config) { c.NWS.Timezone = "Mars/Olympus" }, "NWS_TIMEZONE"},
		{"min readings", func(c *Config) { c.MasterBaro.MinReadings = 0 }, "MASTER_BARO_MIN_READINGS"},
		{"pool size", func(c *Config) { c.Database.PoolSize = 0 }, "DB_POOL_SIZE"},
		{"window", func(c *Config) { c.MasterBaro.Window = 0 }, "MASTER_BARO_WINDOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCredentialsPath(t *testing.T) {
	cfg := &Config{Paths: Paths{ConfigDir: "/etc/waterlevels"}}
	assert.Equal(t, "/etc/waterlevels/sa.json", cfg.CredentialsPath("sa.json"))
	assert.Equal(t, "/abs/sa.json", cfg.CredentialsPath("/abs/sa.json"))
	assert.Equal(t, "", cfg.CredentialsPath(""))
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".water_levels", "settings.json")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.False(t, s.UseCloud)
	assert.Equal(t, "credentials.json", s.CredentialsFile)
	assert.NotEmpty(t, s.CacheDir)

	s.UseCloud = true
	s.DriveFolderID = "1AbCdEf"
	s.ServiceAccount = true
	s.LastDatabase = "caeser_wells.db"
	require.NoError(t, SaveSettings(path, s))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettingsValidation(t *testing.T) {
	s := &Settings{CacheDir: "/tmp/cache", UseCloud: true, CredentialsFile: "c.json"}
	assert.ErrorContains(t, s.Validate(), "drive_folder_id")

	s.DriveFolderID = "folder"
	assert.ErrorContains(t, s.Validate(), "token_file")

	s.ServiceAccount = true
	assert.NoError(t, s.Validate())

	s.CacheDir = ""
	assert.Error(t, s.Validate())

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"use_cloud": true, "cache_dir": "/tmp/c"}`), 0644))
	_, err := LoadSettings(path)
	assert.ErrorContains(t, err, "drive_folder_id")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	_, err = LoadSettings(path)
	assert.Error(t, err)
}
